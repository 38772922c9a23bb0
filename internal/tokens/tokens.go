package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ostrikov/auth-service/internal/models"
)

// AccessTokenTTL is fixed by the API contract, not configurable.
const AccessTokenTTL = 24 * time.Hour

const refreshTokenBytes = 64

type AccessClaims struct {
	FullName string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer carries the process-wide signing configuration. It is built once
// at startup from config and never mutated afterwards.
type Issuer struct {
	Secret   []byte
	Issuer   string
	Audience string
}

func (i *Issuer) NewAccessToken(user *models.User, role string, now time.Time) (string, error) {
	claims := AccessClaims{
		FullName: user.FullName,
		Email:    user.Email,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(user.ID)),
			Issuer:    i.Issuer,
			Audience:  jwt.ClaimStrings{i.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.Secret)
}

// ParseAccessToken verifies signature, algorithm, expiry, issuer and
// audience; a token minted for another service on the same key is rejected.
func (i *Issuer) ParseAccessToken(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return i.Secret, nil
	}, jwt.WithIssuer(i.Issuer), jwt.WithAudience(i.Audience))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

// NewRefreshToken returns an opaque random string. Its validity is decided
// entirely by matching a stored row; it carries no structure or expiry.
func NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
