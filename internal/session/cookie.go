// Package session carries the conversation id between requests in a signed
// cookie.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName    = "conv_id"
	DefaultMaxAge = 30 * 24 * time.Hour
	issuer        = "bizchat"
)

type Cookies struct {
	secret []byte
	secure bool
	maxAge time.Duration
	now    func() time.Time
}

func NewCookies(secret string, secure bool, maxAge time.Duration) (*Cookies, error) {
	if secret == "" {
		return nil, errors.New("session: cookie secret must not be empty")
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Cookies{secret: []byte(secret), secure: secure, maxAge: maxAge, now: time.Now}, nil
}

// Resolve returns the conversation id carried by the request cookie. Missing,
// tampered or expired cookies all report false.
func (c *Cookies) Resolve(r *http.Request) (string, bool) {
	ck, err := r.Cookie(CookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(ck.Value, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || tok == nil || !tok.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// Issue sets a cookie binding the response to conversation id.
func (c *Cookies) Issue(w http.ResponseWriter, id string) error {
	value, err := c.sign(id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *Cookies) sign(id string) (string, error) {
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
	})
	return tok.SignedString(c.secret)
}
