package auth

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is set on every token and required when validating
const Issuer = "tasktags"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims identifies an API client. The registered subject carries the client
// ID as a decimal string.
type Claims struct {
	ClientID uint   `json:"client_id"`
	Client   string `json:"client"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type signingSettings struct {
	secret []byte
	ttl    time.Duration
}

var (
	settingsMu sync.RWMutex
	settings   = signingSettings{ttl: 24 * time.Hour}
)

// Configure sets the signing secret and token lifetime. Until it is called the
// secret comes from JWT_SECRET or a development default.
func Configure(secret string, ttl time.Duration) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings.secret = []byte(secret)
	if ttl > 0 {
		settings.ttl = ttl
	}
}

func currentSettings() signingSettings {
	settingsMu.RLock()
	s := settings
	settingsMu.RUnlock()

	if len(s.secret) == 0 {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			secret = "tasktags-dev-secret-change-in-production"
		}
		s.secret = []byte(secret)
	}
	return s
}

// TokenTTL reports how long newly issued tokens stay valid
func TokenTTL() time.Duration {
	return currentSettings().ttl
}

// GenerateToken signs an HS256 token for an API client
func GenerateToken(clientID uint, client string, role string) (string, error) {
	s := currentSettings()
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		ClientID: clientID,
		Client:   client,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(clientID), 10),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// ValidateToken checks signature, algorithm, issuer and expiry
func ValidateToken(tokenString string) (*Claims, error) {
	secret := currentSettings().secret

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
