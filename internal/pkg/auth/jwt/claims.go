package jwt

import "github.com/golang-jwt/jwt"

// Payload is the claim set carried by identity tokens.
type Payload struct {
	jwt.StandardClaims

	// ID is the user identifier.
	ID string `json:"id"`

	// Nickname is the display name at the time the token was issued.
	Nickname string `json:"nickname"`
}
