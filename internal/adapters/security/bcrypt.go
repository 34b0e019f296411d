package security

import (
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes account passwords for registration and verifies them at
// login. The work factor comes from configuration so deployments can trade
// login latency against brute-force cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher builds a hasher, falling back to the library default when
// the configured cost is out of bcrypt's supported range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the salted bcrypt digest of password. Each call produces a
// distinct digest even for identical inputs.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
