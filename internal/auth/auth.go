package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrInvalidClaims = errors.New("token claims are invalid")

// Claims is what the API needs from an access token.
type Claims struct {
	UserID int64
	Role   string
}

func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

type Authenticator interface {
	GenerateToken(userID int64, role string) (string, error)
	ValidateAccessToken(token string) (*jwt.Token, error)
	ParseClaims(token string) (Claims, error)
}
