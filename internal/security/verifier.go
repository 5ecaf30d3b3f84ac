package security

import (
	"crypto"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, or fails a claim check.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the bearer token claims the API relies on. Subject identifies the calling client.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates bearer JWTs issued by the capture auth service. It never issues tokens.
type Verifier struct {
	publicKey crypto.PublicKey
	parser    *jwt.Parser
}

// NewVerifier returns a Verifier accepting tokens signed by publicKey (RS256 or ES256) with the
// given issuer and audience. Tokens must carry an expiry.
func NewVerifier(publicKey crypto.PublicKey, issuer, audience string) (*Verifier, error) {
	alg := KeyAlg(publicKey)
	if alg == "" {
		return nil, ErrInvalidKey
	}
	return &Verifier{
		publicKey: publicKey,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{alg}),
			jwt.WithIssuer(issuer),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}, nil
}

// NewVerifierFromPEM loads the public key from inline PEM or a file path.
func NewVerifierFromPEM(s, issuer, audience string) (*Verifier, error) {
	pub, err := ParsePublicKey(s)
	if err != nil {
		return nil, fmt.Errorf("auth public key: %w", err)
	}
	return NewVerifier(pub, issuer, audience)
}

// Verify parses token and checks signature, algorithm, expiry, issuer and audience.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
