package services

import (
	"context"
	"testing"
	"time"

	"lead_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLead(t *testing.T) {
	db := setupServiceTestDB(t)
	exec := createTestUser(t, db, models.RoleSalesExecutive)
	pc := createTestUser(t, db, models.RolePaymentCoordinator)

	lead, err := CreateLead(db, LeadInput{Name: " Meera ", Phone: "9123456780", AssignedToID: exec.ID}, actorOf(exec))
	require.NoError(t, err)
	assert.Equal(t, "Meera", lead.Name)
	assert.Equal(t, models.LeadStatusFresh, lead.Status)
	require.NotNil(t, lead.AssignedToID)
	assert.Equal(t, exec.ID, *lead.AssignedToID)

	thread, err := GetThread(db, lead.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, models.LeadActionCreated, thread[0].Action)
	assert.Equal(t, exec.ID, thread[0].PerformedByID)

	_, err = CreateLead(db, LeadInput{Name: "", Phone: ""}, actorOf(exec))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"name", "phone"}, ve.Fields)

	_, err = CreateLead(db, LeadInput{Name: "X", Phone: "1"}, actorOf(pc))
	assert.True(t, IsAuthorizationError(err))

	_, err = CreateLead(db, LeadInput{Name: "X", Phone: "1", AssignedToID: "ghost"}, actorOf(exec))
	assert.True(t, IsValidationError(err))
}

func TestChangeLeadStatus(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	exec := createTestUser(t, db, models.RoleSalesExecutive)
	lead, err := CreateLead(db, LeadInput{Name: "Meera", Phone: "9123456780", AssignedToID: exec.ID}, actorOf(exec))
	require.NoError(t, err)

	t.Run("callback later requires a time", func(t *testing.T) {
		_, err := ChangeLeadStatus(ctx, db, lead.ID, models.LeadStatusCallbackLater, nil, actorOf(exec))
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"callback_time"}, ve.Fields)

		reloaded, _ := GetLead(db, lead.ID)
		assert.Equal(t, models.LeadStatusFresh, reloaded.Status)
	})

	t.Run("callback later schedules a reminder", func(t *testing.T) {
		at := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
		updated, err := ChangeLeadStatus(ctx, db, lead.ID, models.LeadStatusCallbackLater, &at, actorOf(exec))
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusCallbackLater, updated.Status)
		require.NotNil(t, updated.CallbackTime)
		assert.True(t, at.Equal(*updated.CallbackTime))

		var reminders []models.CallbackReminder
		db.Where("lead_id = ?", lead.ID).Find(&reminders)
		require.Len(t, reminders, 1)
		assert.True(t, reminders[0].IsPending())
		assert.Equal(t, exec.ID, reminders[0].UserID)
	})

	t.Run("leaving callback later cancels the reminder", func(t *testing.T) {
		updated, err := ChangeLeadStatus(ctx, db, lead.ID, models.LeadStatusWon, nil, actorOf(exec))
		require.NoError(t, err)
		assert.True(t, updated.IsWon())
		assert.Nil(t, updated.CallbackTime)

		var pending int64
		db.Model(&models.CallbackReminder{}).Where("lead_id = ? AND cancelled_at IS NULL", lead.ID).Count(&pending)
		assert.Zero(t, pending)
	})

	t.Run("any status may follow any other", func(t *testing.T) {
		updated, err := ChangeLeadStatus(ctx, db, lead.ID, models.LeadStatusFresh, nil, actorOf(exec))
		require.NoError(t, err)
		assert.Equal(t, models.LeadStatusFresh, updated.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := ChangeLeadStatus(ctx, db, lead.ID, "Maybe", nil, actorOf(exec))
		assert.True(t, IsValidationError(err))
	})

	t.Run("thread records every change in order", func(t *testing.T) {
		thread, err := GetThread(db, lead.ID)
		require.NoError(t, err)
		require.Len(t, thread, 4)
		assert.Equal(t, "Status changed from Fresh to Callback Later", thread[1].Details)
		assert.Equal(t, "Status changed from Callback Later to Won", thread[2].Details)
		assert.Equal(t, "Status changed from Won to Fresh", thread[3].Details)

		// thread entries are append-only
		assert.ErrorIs(t, db.Model(&thread[0]).Update("details", "rewritten").Error, models.ErrImmutableEntry)
		assert.ErrorIs(t, db.Delete(&thread[0]).Error, models.ErrImmutableEntry)
	})
}

func TestAssignLead(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	manager := createTestUser(t, db, models.RoleSalesManager)
	first := createTestUser(t, db, models.RoleSalesExecutive)
	second := createTestUser(t, db, models.RoleSalesExecutive)

	lead, err := CreateLead(db, LeadInput{Name: "Meera", Phone: "9123456780", AssignedToID: first.ID}, actorOf(manager))
	require.NoError(t, err)
	at := time.Now().Add(time.Hour)
	_, err = ChangeLeadStatus(ctx, db, lead.ID, models.LeadStatusCallbackLater, &at, actorOf(first))
	require.NoError(t, err)

	updated, err := AssignLead(db, lead.ID, second.ID, actorOf(manager))
	require.NoError(t, err)
	assert.Equal(t, second.ID, *updated.AssignedToID)
	require.NotNil(t, updated.AssignedFromID)
	assert.Equal(t, first.ID, *updated.AssignedFromID)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, second.Name, updated.AssignedTo.Name)

	var reminder models.CallbackReminder
	require.NoError(t, db.Where("lead_id = ?", lead.ID).First(&reminder).Error)
	assert.Equal(t, second.ID, reminder.UserID)

	_, err = AssignLead(db, lead.ID, "", actorOf(manager))
	assert.True(t, IsValidationError(err))
	_, err = AssignLead(db, "missing", second.ID, actorOf(manager))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeadNotesAndUpdates(t *testing.T) {
	ctx := context.Background()
	db := setupServiceTestDB(t)
	exec := createTestUser(t, db, models.RoleSalesExecutive)
	lead, err := CreateLead(db, LeadInput{Name: "Meera", Phone: "9123456780"}, actorOf(exec))
	require.NoError(t, err)

	note, err := AddLeadNote(db, lead.ID, "<script>x</script>Prefers evening calls", actorOf(exec))
	require.NoError(t, err)
	assert.Equal(t, "Prefers evening calls", note.Details)
	assert.Equal(t, models.LeadActionNoteAdded, note.Action)

	_, err = AddLeadNote(db, lead.ID, "  ", actorOf(exec))
	assert.True(t, IsValidationError(err))

	updated, err := UpdateLead(ctx, db, lead.ID, LeadPatch{Email: strPtr("meera@example.com")}, actorOf(exec))
	require.NoError(t, err)
	assert.Equal(t, "meera@example.com", updated.Email)
	assert.Equal(t, "9123456780", updated.Phone)

	thread, _ := GetThread(db, lead.ID)
	assert.Len(t, thread, 2, "contact edits do not add thread entries")

	_, err = GetThread(db, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListLeads(t *testing.T) {
	db := setupServiceTestDB(t)
	exec := createTestUser(t, db, models.RoleSalesExecutive)
	_, err := CreateLead(db, LeadInput{Name: "Meera Shah", Phone: "9123456780", AssignedToID: exec.ID}, actorOf(exec))
	require.NoError(t, err)
	_, err = CreateLead(db, LeadInput{Name: "Arjun Rao", Phone: "9000000001"}, actorOf(exec))
	require.NoError(t, err)

	leads, total, err := ListLeads(db, LeadFilters{Search: "meera"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Meera Shah", leads[0].Name)

	leads, total, err = ListLeads(db, LeadFilters{AssignedToID: exec.ID}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, leads, 1)

	_, total, err = ListLeads(db, LeadFilters{Status: models.LeadStatusFresh}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
