// Package identity resolves who is making a request. Signed-in users carry a
// JWT; anonymous players identify themselves with a guest id and only get
// the polling path.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissing = errors.New("identity missing")

type Identity struct {
	UserID   string `json:"user_id"`
	SignedIn bool   `json:"signed_in"`
}

func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UserID) != ""
}

func Guest(id string) Identity {
	return Identity{UserID: "guest:" + strings.TrimSpace(id)}
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

func (i *Issuer) Sign(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *Issuer) Parse(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Identity{}, errors.New("invalid token")
	}
	return Identity{UserID: claims.UserID, SignedIn: true}, nil
}

// Resolve picks the identity from a bearer header or, failing that, a guest id.
func (i *Issuer) Resolve(authorization, guestID string) (Identity, error) {
	if authorization != "" {
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			return Identity{}, errors.New("unsupported authorization scheme")
		}
		return i.Parse(strings.TrimSpace(authorization[len("Bearer "):]))
	}
	if strings.TrimSpace(guestID) != "" {
		return Guest(guestID), nil
	}
	return Identity{}, ErrMissing
}
