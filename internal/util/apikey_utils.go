package util

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/sentinelstack/apigateway/internal/domain/apikey"
)

// GenerateAPIKey draws apikey.SecretBytes of entropy from r, encodes it
// URL-safe without padding and prepends the literal key tag. The derived
// prefix is the first apikey.PrefixLength characters of the full key,
// stored in clear purely to narrow lookup.
func GenerateAPIKey(r io.Reader) (fullKey string, prefix string, err error) {
	buf := make([]byte, apikey.SecretBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	fullKey = apikey.KeyTag + base64.RawURLEncoding.EncodeToString(buf)
	prefix = fullKey[:apikey.PrefixLength]
	return fullKey, prefix, nil
}
