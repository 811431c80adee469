package handlers

import (
	"net/http"
	"testing"
	"time"

	"lead_flow_app_go/middleware"
	"lead_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginFlow(t *testing.T) {
	testDB := setupTestDB(t)
	e := newTestServer()
	user := createUser(t, models.RolePLVCVerificator)

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/login", "", map[string]string{"email": user.Email, "password": "nope12345"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decodeResponse(t, rec, nil)
		assert.Equal(t, "Invalid email or password", resp.Error)
	})

	var token string
	t.Run("login opens a session", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodPost, "/login", "", map[string]string{"email": user.Email, "password": "secret123"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var data loginResponse
		decodeResponse(t, rec, &data)
		require.NotEmpty(t, data.Token)
		assert.Equal(t, user.ID, data.User.ID)
		token = data.Token

		var cookieSet bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == middleware.SessionCookieName && c.Value == token {
				cookieSet = true
			}
		}
		assert.True(t, cookieSet)

		assert.Eventually(t, func() bool {
			var count int64
			testDB.Model(&models.AuditLog{}).Where("action = ? AND resource_id = ?", models.AuditActionLogin, user.ID).Count(&count)
			return count == 1
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("me and logout", func(t *testing.T) {
		rec := doJSON(t, e, http.MethodGet, "/api/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var me models.User
		decodeResponse(t, rec, &me)
		assert.Equal(t, user.Email, me.Email)
		assert.NotContains(t, rec.Body.String(), "password")

		rec = doJSON(t, e, http.MethodPost, "/logout", token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, e, http.MethodGet, "/api/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
