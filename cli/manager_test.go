package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qadash/qadash/model"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		endOfDay bool
		want     time.Time
		wantErr  bool
	}{
		{
			name: "rfc3339",
			in:   "2026-08-10T12:30:00Z",
			want: time.Date(2026, 8, 10, 12, 30, 0, 0, time.UTC),
		},
		{
			name: "plain date",
			in:   "2026-08-10",
			want: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "plain date as upper bound covers the whole day",
			in:       "2026-08-10",
			endOfDay: true,
			want:     time.Date(2026, 8, 10, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC),
		},
		{
			name:     "rfc3339 ignores endOfDay",
			in:       "2026-08-10T12:30:00Z",
			endOfDay: true,
			want:     time.Date(2026, 8, 10, 12, 30, 0, 0, time.UTC),
		},
		{
			name:    "garbage",
			in:      "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.in, tt.endOfDay)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseMetadata(t *testing.T) {
	md, err := parseMetadata(nil)
	require.NoError(t, err)
	require.Nil(t, md)

	md, err = parseMetadata([]string{"browser=firefox", "retries=2", "note=a=b"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"browser": "firefox", "retries": "2", "note": "a=b"}, md)

	_, err = parseMetadata([]string{"no-separator"})
	require.Error(t, err)

	_, err = parseMetadata([]string{"=value"})
	require.Error(t, err)
}

func TestStatusSymbol(t *testing.T) {
	require.Equal(t, "✓", statusSymbol(model.StatusPassed))
	require.Equal(t, "✗", statusSymbol(model.StatusFailed))
	require.Equal(t, "-", statusSymbol(model.StatusSkipped))
	require.Equal(t, "!", statusSymbol(model.StatusBlocked))
	require.Equal(t, "?", statusSymbol(model.Status("flaky")))
}
