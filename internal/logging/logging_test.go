package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		json    bool
		logged  bool
		wantErr bool
	}{
		{"debug console", "debug", false, true, false},
		{"info json", "info", true, true, false},
		{"warn hides info", "warn", false, false, false},
		{"bogus level", "loud", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewWithWriter(&buf, tt.level, tt.json)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			logger.Info("hello")
			logger.Sync()

			if !tt.logged {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), "hello")

			if tt.json {
				var entry map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
				assert.Equal(t, "info", entry["level"])
			}
		})
	}
}
