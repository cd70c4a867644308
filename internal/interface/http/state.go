package httpiface

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// Should not happen; fall back to a random uuid
		return hex.EncodeToString([]byte(uuid.NewString()))[:2*n]
	}
	return hex.EncodeToString(b)
}
