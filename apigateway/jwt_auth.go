package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/adonese/folio/cms_fields"
	"github.com/golang-jwt/jwt"
)

const (
	issuer     = "folio"
	defaultTTL = 12 * time.Hour
)

// JWTAuth provides an encapsulation for jwt auth
type JWTAuth struct {
	Key []byte
	TTL time.Duration
}

// NewJWTAuth builds a JWTAuth from config. An empty key gets a random one, which logs every
// session out on restart.
func NewJWTAuth(cfg cms_fields.FolioConfig) (*JWTAuth, error) {
	key := []byte(cfg.JWTKey)
	if len(key) == 0 {
		generated, err := GenerateSecretKey(32)
		if err != nil {
			return nil, err
		}
		key = []byte(hex.EncodeToString(generated))
	}
	return &JWTAuth{Key: key, TTL: time.Duration(cfg.SessionTTLMinutes) * time.Minute}, nil
}

// TokenClaims folio session claims
type TokenClaims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

// GenerateJWT signs a session token for user.
func (j *JWTAuth) GenerateJWT(user cms_fields.User) (string, error) {
	if len(j.Key) == 0 {
		return "", errors.New("empty jwt key")
	}
	ttl := j.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := time.Now()
	claims := TokenClaims{
		UserID:         user.ID,
		Email:          user.Email,
		Role:           user.Role,
		StandardClaims: generateClaims(now.Unix(), now.Add(ttl).Unix(), issuer),
	}
	claims.Subject = fmt.Sprint(user.ID)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Key)
}

// VerifyJWT parses a token and returns its claims. On an expired token the claims are
// returned together with a *jwt.ValidationError so callers can tell expiry apart.
func (j *JWTAuth) VerifyJWT(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Key, nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Issuer != issuer || claims.UserID == 0 {
		return nil, &jwt.ValidationError{Inner: errors.New("foreign token"), Errors: jwt.ValidationErrorClaimsInvalid}
	}
	return claims, nil
}

// IsExpired reports whether err says the token only failed because it expired.
func IsExpired(err error) bool {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		return ve.Errors&jwt.ValidationErrorExpired != 0
	}
	return false
}

func generateClaims(iat, eat int64, issuer string) jwt.StandardClaims {
	claims := jwt.StandardClaims{
		IssuedAt:  iat,
		ExpiresAt: eat,
		Issuer:    issuer,
	}

	return claims
}

// GenerateSecretKey generates secret key for jwt signing
func GenerateSecretKey(n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
