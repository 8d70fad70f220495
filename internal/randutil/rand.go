package randutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	rand2 "math/rand/v2"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
func New(seed int64) *rand2.Rand {
	u := uint64(seed)
	return rand2.New(rand2.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// ShuffleSeed derives a 256-bit startGame seed from a user supplied value,
// so replaying a table with the same value gives the contract the same seed.
func ShuffleSeed(seed int64) *big.Int {
	r := New(seed)
	out := new(big.Int)
	for i := 0; i < 4; i++ {
		out.Lsh(out, 64)
		out.Or(out, new(big.Int).SetUint64(r.Uint64()))
	}
	return out
}

// RandomShuffleSeed returns a 256-bit seed from the system's secure source.
func RandomShuffleSeed() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 256)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}
	return n, nil
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
