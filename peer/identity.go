package peer

import (
	"fmt"
	"math/rand"
	"time"
)

// newSessionNonce derives the per-session nonce used to build candidate
// identities: a millisecond timestamp plus a random suffix. Повторная
// коллизия после перегенерации практически невозможна.
func newSessionNonce() string {
	return fmt.Sprintf("%d%03d", time.Now().UnixMilli()%1_000_000, rand.Intn(1000))
}

// candidateIdentity builds the deterministic candidate identity for the user:
// the same nonce is reused for every reconnect within a session, so the
// client keeps one stable identity until a collision or an explicit reset.
func candidateIdentity(userID, nonce string) string {
	return userID + "_" + nonce
}
