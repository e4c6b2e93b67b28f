// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// # Opaque Tokens
//
// Refresh tokens are opaque random values, not JWTs. The server stores only
// the SHA-256 digest, so a database leak never exposes a usable token.

// GenerateSecureToken returns a hex-encoded random token built from
// byteLength bytes of CSPRNG output.
//
// # Parameters
//   - byteLength: Entropy size in bytes (the string is twice as long).
func GenerateSecureToken(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// The digest, never the token itself, is what gets persisted and looked up.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
