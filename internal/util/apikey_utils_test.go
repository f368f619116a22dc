package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sentinelstack/apigateway/internal/domain/apikey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	entropy := bytes.Repeat([]byte{0xAB}, apikey.SecretBytes)

	fullKey, prefix, err := GenerateAPIKey(bytes.NewReader(entropy))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fullKey, apikey.KeyTag))
	assert.Equal(t, fullKey[:apikey.PrefixLength], prefix)
	// 32 bytes encode to 43 chars without padding.
	assert.Len(t, fullKey, len(apikey.KeyTag)+43)
	assert.NotContains(t, fullKey, "=")

	// Same entropy yields the same key: generation is a pure function of
	// the reader.
	again, _, err := GenerateAPIKey(bytes.NewReader(entropy))
	require.NoError(t, err)
	assert.Equal(t, fullKey, again)
}

func TestGenerateAPIKey_ShortReader(t *testing.T) {
	_, _, err := GenerateAPIKey(bytes.NewReader([]byte{0x01, 0x02}))
	assert.Error(t, err)
}
