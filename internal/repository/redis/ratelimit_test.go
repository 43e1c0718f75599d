package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowReset(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 59, 0, time.UTC)

	tests := []struct {
		name string
		ttl  time.Duration
		want time.Time
	}{
		{name: "remaining ttl", ttl: 42 * time.Second, want: now.Add(42 * time.Second)},
		{name: "key without expiry", ttl: -1, want: now.Add(time.Minute)},
		{name: "missing key", ttl: -2, want: now.Add(time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, windowReset(now, tt.ttl))
		})
	}
}
