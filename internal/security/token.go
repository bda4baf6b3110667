package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "testimonialkit"

// ErrInvalidToken indicates a token failed signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// UserClaims are the claims carried by owner session tokens.
type UserClaims struct {
	UserID   uint64 `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 owner tokens.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	nowFn  func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer; nowFn defaults to time.Now.
func NewTokenIssuer(secret string, expiry time.Duration, nowFn func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token issuer: empty secret")
	}
	if expiry <= 0 {
		return nil, fmt.Errorf("token issuer: invalid expiry %s", expiry)
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), expiry: expiry, nowFn: nowFn}, nil
}

// Issue returns a signed token for the user.
func (i *TokenIssuer) Issue(userID uint64, username string) (string, error) {
	now := i.nowFn()
	claims := UserClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
		},
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if errSign != nil {
		return "", fmt.Errorf("sign token: %w", errSign)
	}
	return signed, nil
}

// Parse verifies token and returns its claims.
func (i *TokenIssuer) Parse(token string) (*UserClaims, error) {
	claims := &UserClaims{}
	parsed, errParse := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(i.nowFn),
	)
	if errParse != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, errParse)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}
