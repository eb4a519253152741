package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the JWT claims the space accepts. Tokens are issued by the identity service;
// the server only verifies them and reads who the bearer is.
type Payload struct {
	// StandardClaims embeds the standard fields such as Exp (Expiration), Iat (Issued At)
	// and Iss (Issuer) at the top level of the claims object. Exp is checked during parsing.
	jwt.StandardClaims

	// ID is the stable, unique identifier of the user.
	ID string `json:"id"`

	// Username is the display name shown to other participants.
	Username string `json:"username"`
}
