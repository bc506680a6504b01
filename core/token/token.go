// Package token implements single-use password recovery tokens. Only
// a SHA-256 hash of a token is stored; the plaintext exists once, in
// the recovery email.
package token

import (
	"crypto/sha256"
	"time"
)

const ScopeRecovery = "recovery"

// plaintextLength is the length of the token mailed to the user.
const plaintextLength = 32

type Token struct {
	Hash   []byte    `db:"token_hash"`
	UserID string    `db:"user_id"`
	Scope  string    `db:"scope"`
	Expiry time.Time `db:"expiry"`
}

func hash(plaintext string) []byte {
	h := sha256.Sum256([]byte(plaintext))
	return h[:]
}
