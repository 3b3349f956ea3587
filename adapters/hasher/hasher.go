// Package hasher provides secret hashing implementations.
package hasher

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/pipekit/ports"
)

// Bcrypt uses bcrypt for hashing.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher whose default cost is cost. A cost
// outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Cost returns the default cost.
func (h *Bcrypt) Cost() int { return h.cost }

// Hash generates a bcrypt hash of plaintext. A zero cost uses the default.
func (h *Bcrypt) Hash(plaintext string, cost int) ([]byte, error) {
	if cost == 0 {
		cost = h.cost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, ports.ErrInvalidCost
	}
	return bcrypt.GenerateFromPassword([]byte(plaintext), cost)
}

// Compare checks plaintext against hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(plaintext))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ports.ErrHashMismatch
	}
	return err
}

var _ ports.Hasher = (*Bcrypt)(nil)

// Fake stores plaintext behind a marker prefix (NOT FOR PRODUCTION).
type Fake struct{}

const fakePrefix = "fake$"

// Hash returns the prefixed plaintext.
func (Fake) Hash(plaintext string, cost int) ([]byte, error) {
	if cost < 0 {
		return nil, ports.ErrInvalidCost
	}
	return []byte(fakePrefix + plaintext), nil
}

// Compare does a simple equality check.
func (Fake) Compare(hash []byte, plaintext string) error {
	if string(hash) != fakePrefix+plaintext {
		return ports.ErrHashMismatch
	}
	return nil
}

var _ ports.Hasher = Fake{}
