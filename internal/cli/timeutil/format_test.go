package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Second, "2h 0m 5s"},
		{72*time.Hour + 30*time.Minute + 15*time.Second, "3d 0h 30m 15s"},
		{1499 * time.Millisecond, "1s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatUptime(tt.in))
		})
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, ts.Local().Format(LocalTimeFormat), FormatTime(ts))
	assert.Equal(t, "-", FormatTime(time.Time{}))
	assert.Equal(t, FormatTime(ts), FormatTimestamp("2024-03-01T12:00:00Z"))
	assert.Equal(t, "yesterday", FormatTimestamp("yesterday"))
}
