package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
// Principal is the authenticated caller identity the ledger trusts; the
// token is how presentation collaborators (wallet/session contexts) hand
// it to the API.
type AccessTokenPayload struct {
	Principal string
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	Principal string `json:"principal"`
	jwt.RegisteredClaims
}
