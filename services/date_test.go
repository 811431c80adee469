package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "Calendar date",
			input:    "2026-01-27",
			expected: time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "RFC3339 timestamp",
			input:    "2026-01-27T15:30:00Z",
			expected: time.Date(2026, 1, 27, 15, 30, 0, 0, time.UTC),
		},
		{
			name:     "Empty clears",
			input:    "  ",
			expected: time.Time{},
		},
		{
			name:    "Invalid format",
			input:   "27-01-2026",
			wantErr: true,
		},
		{
			name:    "Invalid day",
			input:   "2026-01-32",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, "policy_issue_date")
			if tt.wantErr {
				assert.Error(t, err)
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
				assert.Equal(t, []string{"policy_issue_date"}, ve.Fields)
				return
			}
			assert.NoError(t, err)
			assert.True(t, tt.expected.Equal(*got))
		})
	}
}
