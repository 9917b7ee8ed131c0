package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload carried by access tokens issued by
// the auth service. AuthID mirrors the subject used for identity lookups.
type JWTClaims struct {
	AuthID   string `json:"auth_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// Subject returns the best available actor identity for audit fields.
func (c *JWTClaims) Subject() string {
	if c == nil {
		return ""
	}
	if c.AuthID != "" {
		return c.AuthID
	}
	return c.RegisteredClaims.Subject
}
