package session

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer     = "tiktok-auth-bridge"
	DefaultTTL = 24 * time.Hour
)

// Minter issues the backend token returned by the verify-session flow. It is
// an HS256 JWT bound to the uid; nothing in this service accepts it as an
// authorization credential.
type Minter struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMinter uses secret for signing. An empty secret is replaced by random
// bytes, which makes tokens unverifiable across restarts.
func NewMinter(secret string, ttl time.Duration) (*Minter, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate backend token secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Minter{secret: key, ttl: ttl, now: time.Now}, nil
}

func (m *Minter) Mint(uid string) (string, error) {
	if uid == "" {
		return "", errors.New("mint backend token: empty uid")
	}
	now := m.now()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   uid,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// parse validates a token minted by m and returns its uid. Nothing in the
// service accepts backend tokens; it pins the claims Mint writes.
func (m *Minter) parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
