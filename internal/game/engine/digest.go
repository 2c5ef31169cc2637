package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"inboxwars.io/internal/game"
)

// ResolutionDigest hashes the canonical JSON form of a resolution. Map keys
// are sorted by encoding/json, so equal resolutions always hash equal: the
// digest is the determinism audit hook for logs and replay.
func ResolutionDigest(res *game.Resolution) string {
	b, err := json.Marshal(res)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StateDigest hashes the full session state (teams, destinations, history).
func StateDigest(st *game.State) string {
	b, err := json.Marshal(st)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
