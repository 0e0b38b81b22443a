package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   int64
	Username string
	IsStaff  bool
}

// AccessTokenClaims mirrors the claims the backend puts in its access tokens.
type AccessTokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	IsStaff  bool   `json:"is_staff,omitempty"`
	jwt.RegisteredClaims
}
