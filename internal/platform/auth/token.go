package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Issuer signs the HS256 access tokens accepted by Verifier. Login endpoints
// are its only callers.
type Issuer struct {
	Secret []byte
	TTL    time.Duration
}

// Issue returns a signed token carrying the user's id as subject and the
// email claim the gate requires, plus the token's expiry.
func (i Issuer) Issue(userID, email string, now time.Time) (string, time.Time, error) {
	if len(i.Secret) == 0 {
		return "", time.Time{}, errors.New("missing jwt secret")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	exp := now.Add(ttl)

	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
