package services

import (
	"sync"
	"unicode"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

const MinPasswordLength = 8

var ErrWeakPassword = serrors.Validation(
	"WEAK_PASSWORD",
	"password must be at least 8 characters and contain a letter and a digit",
).WithField("password", "policy")

// CredentialService hashes and verifies passwords. Plaintext never leaves
// this type and is never logged.
type CredentialService struct {
	cost      int
	dummyOnce sync.Once
	dummy     []byte
}

func NewCredentialService(cost int) *CredentialService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialService{cost: cost}
}

func (s *CredentialService) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(h), nil
}

// Verify reports whether password matches hash. An empty hash never matches.
func (s *CredentialService) Verify(password, hash string) bool {
	if hash == "" {
		s.burn(password)
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// burn spends the same work as a real verification so that unknown accounts
// cannot be told apart by response time.
func (s *CredentialService) burn(password string) {
	s.dummyOnce.Do(func() {
		s.dummy, _ = bcrypt.GenerateFromPassword([]byte("pharmacy-dummy-password"), s.cost)
	})
	_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > 72 {
		return ErrWeakPassword
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrWeakPassword
	}
	return nil
}
