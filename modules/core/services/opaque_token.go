package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

const opaqueSecretBytes = 32

// opaqueToken is "<tenantID>.<userID>.<secret>". The ids route the lookup to
// the right tenant and row; only the SHA-256 digest of the whole token is
// stored.
type opaqueToken struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Raw      string
}

func newOpaqueToken(tenantID, userID uuid.UUID) (*opaqueToken, error) {
	buf := make([]byte, opaqueSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, "generate token secret")
	}
	raw := tenantID.String() + "." + userID.String() + "." + base64.RawURLEncoding.EncodeToString(buf)
	return &opaqueToken{TenantID: tenantID, UserID: userID, Raw: raw}, nil
}

func parseOpaqueToken(raw string) (*opaqueToken, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[2] == "" {
		return nil, false
	}
	tenantID, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, false
	}
	userID, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, false
	}
	return &opaqueToken{TenantID: tenantID, UserID: userID, Raw: raw}, true
}

func (t *opaqueToken) Digest() string {
	sum := sha256.Sum256([]byte(t.Raw))
	return hex.EncodeToString(sum[:])
}

func (t *opaqueToken) Matches(digest string) bool {
	return subtle.ConstantTimeCompare([]byte(t.Digest()), []byte(digest)) == 1
}
