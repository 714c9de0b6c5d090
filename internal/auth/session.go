// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken wraps every failure to authenticate a bearer token.
var ErrInvalidToken = errors.New("invalid token")

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenTTL is how long issued tokens stay valid. Zero issues tokens without an exp claim.
	tokenTTL time.Duration
)

// Claims is the identity carried in a session token.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity is an authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Name   string
}

// Init generates a fresh ed25519 key pair. Tokens do not survive a restart.
func Init(ttl time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generating ed25519 key pair: %w", err)
	}
	publicKey, privateKey, tokenTTL = pub, priv, ttl
	return nil
}

// InitFromPath loads PEM encoded ed25519 keys.
func InitFromPath(privatePath, publicPath string, ttl time.Duration) error {
	privPEM, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	pubPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	priv, err := jwt.ParseEdPrivateKeyFromPEM(privPEM)
	if err != nil {
		return fmt.Errorf("parsing private key: %w", err)
	}
	pub, err := jwt.ParseEdPublicKeyFromPEM(pubPEM)
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}
	privateKey, _ = priv.(ed25519.PrivateKey)
	publicKey, _ = pub.(ed25519.PublicKey)
	if privateKey == nil || publicKey == nil {
		return errors.New("key files are not ed25519")
	}
	tokenTTL = ttl
	return nil
}

// CreateJWT signs a token whose subject is the user id.
func CreateJWT(userID uuid.UUID, name string) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID.String(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if tokenTTL != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tokenTTL))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
}

// AuthenticateJWT verifies a token and returns the identity it carries.
func AuthenticateJWT(tokenString string) (Identity, error) {
	var claims Claims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return Identity{}, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return Identity{UserID: id, Name: claims.Name}, nil
}
