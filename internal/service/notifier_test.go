package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolhub/internal/model"
)

func TestLogResetNotifier(t *testing.T) {
	user := &model.User{ID: uuid.New(), Email: "alice@example.com"}
	expires := time.Now().Add(time.Hour)

	tests := []struct {
		name         string
		includeToken bool
	}{
		{"token withheld", false},
		{"token logged for development", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n := NewLogResetNotifier(zerolog.New(&buf), tt.includeToken)

			require.NoError(t, n.NotifyPasswordReset(context.Background(), user, "deadbeef", expires))
			assert.Contains(t, buf.String(), user.ID.String())
			if tt.includeToken {
				assert.Contains(t, buf.String(), `"reset_token":"deadbeef"`)
			} else {
				assert.NotContains(t, buf.String(), "deadbeef")
			}
		})
	}
}
