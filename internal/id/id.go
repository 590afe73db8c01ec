package id

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const shortAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// New returns a 128-bit hex identifier.
func New() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "fallback-id"
	}
	return hex.EncodeToString(b[:])
}

// Short returns a 9 character base36 token. It is only meant to tell items of
// one response apart.
func Short() string {
	const size = 9
	out := make([]byte, size)
	limit := big.NewInt(int64(len(shortAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			out[i] = '0'
			continue
		}
		out[i] = shortAlphabet[n.Int64()]
	}
	return string(out)
}
