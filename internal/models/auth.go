package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the claims carried by access tokens issued upstream.
// This service only reads them; issuance belongs to the identity layer.
type TokenClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
