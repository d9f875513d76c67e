package oauth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// StateTTL bounds how long a user may sit on the provider's consent page.
const StateTTL = 10 * time.Minute

// StateClaims is the anti-forgery state carried through the provider.
type StateClaims struct {
	jwt.RegisteredClaims
	Provider string `json:"prv"`
}

// StateSigner issues and checks HS256-signed state values.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), ttl: StateTTL, now: time.Now}
}

// Issue returns a state value for provider with a random nonce as jti.
func (s *StateSigner) Issue(provider string) (string, error) {
	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Provider: provider,
	})
	return token.SignedString(s.secret)
}

// Verify accepts only unexpired states signed with our secret for provider.
func (s *StateSigner) Verify(state, provider string) error {
	if state == "" {
		return fmt.Errorf("%w: missing", common.ErrInvalidState)
	}

	claims := &StateClaims{}
	token, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidState, err)
	}
	if !token.Valid || claims.Provider != provider {
		return common.ErrInvalidState
	}
	return nil
}
