package auth

import "github.com/golang-jwt/jwt/v5"

// EditorClaims are the JWT claims accepted from the identity provider
type EditorClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// EditorID returns the editor's id from the subject claim
func (c *EditorClaims) EditorID() string {
	return c.Subject
}

// JWTVerifier validates bearer tokens for the editor API
type JWTVerifier interface {
	// VerifyToken returns the parsed claims or domain.ErrUnauthorized
	VerifyToken(tokenString string) (*EditorClaims, error)

	Close() error
}
