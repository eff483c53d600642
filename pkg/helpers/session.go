package helpers

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// SessionParser validates access tokens issued by the auth provider. The
// provider signs them HS256 with the project JWT secret; this application
// never issues tokens of its own.
type SessionParser struct {
	secret []byte
}

func NewSessionParser(secret string) *SessionParser {
	return &SessionParser{secret: []byte(secret)}
}

// SessionClaims is the subset of the provider's token this application reads.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the identity id the token was issued for
func (c *SessionClaims) UserID() string {
	return c.Subject
}

func (p *SessionParser) Parse(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
