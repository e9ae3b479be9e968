package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the strength used for existing account hashes.
const DefaultCost = 10

// Hasher hashes and checks passwords with bcrypt.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Matches is false for a wrong password and for an unparseable digest.
func (h *Hasher) Matches(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
