package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AccessTTL  = 30 * time.Minute
	RefreshTTL = 7 * 24 * time.Hour
)

type Claims struct {
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens with a single shared secret.
// Tokens are self-contained: validity is signature plus expiry, no storage.
type Service struct {
	Secret []byte
}

func (s *Service) IssueAccessToken(userID uint) (string, error) {
	return s.sign(userID, time.Now().Add(AccessTTL), uuid.NewString())
}

func (s *Service) IssueRefreshToken(userID uint) (string, error) {
	return s.sign(userID, time.Now().Add(RefreshTTL), "")
}

func (s *Service) sign(userID uint, exp time.Time, jti string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        jti,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.Secret)
}

// Decode verifies signature and expiry and returns the subject user id.
// Every failure collapses to ok=false; callers cannot tell an expired
// token from a forged one.
func (s *Service) Decode(raw string) (uint, bool) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return s.Secret, nil
	})
	if err != nil || !tkn.Valid {
		return 0, false
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
