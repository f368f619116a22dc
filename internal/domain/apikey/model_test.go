package apikey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectivelyActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := map[string]struct {
		key  APIKey
		want bool
	}{
		"active without expiry": {
			key:  APIKey{Status: StatusActive},
			want: true,
		},
		"active before expiry": {
			key:  APIKey{Status: StatusActive, ExpiresAt: &future},
			want: true,
		},
		"active past expiry": {
			key:  APIKey{Status: StatusActive, ExpiresAt: &past},
			want: false,
		},
		"revoked": {
			key:  APIKey{Status: StatusRevoked},
			want: false,
		},
		"revoked before expiry": {
			key:  APIKey{Status: StatusRevoked, ExpiresAt: &future},
			want: false,
		},
		"marked expired": {
			key:  APIKey{Status: StatusExpired},
			want: false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.key.EffectivelyActive(now))
		})
	}
}
