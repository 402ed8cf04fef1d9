package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand"  // secure random source for token nonces
	"encoding/hex" // hex encoding of random bytes
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/learnhub/auth-service/internal/model"
)

// ErrInvalidToken is returned for every verification failure: bad
// signature, wrong secret class, malformed input, or past expiry.
// Callers must not be able to tell these apart from the error value;
// the distinction only belongs in logs.
var ErrInvalidToken = errors.New("invalid token")

// SignedToken pairs a serialized JWT with its expiry so transport code
// can align cookie lifetimes with token lifetimes.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenCodec signs and verifies the three token classes used by the
// auth flows. Each class has its own secret so a leaked activation
// secret cannot forge access or refresh tokens. The codec is built
// once at startup from configuration and is read-only afterwards.
type TokenCodec struct {
	activationSecret []byte
	accessSecret     []byte
	refreshSecret    []byte

	ActivationTTL time.Duration
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// NewTokenCodec builds a codec from the three class secrets and their
// lifetimes.
func NewTokenCodec(activationSecret, accessSecret, refreshSecret string,
	activationTTL, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		activationSecret: []byte(activationSecret),
		accessSecret:     []byte(accessSecret),
		refreshSecret:    []byte(refreshSecret),
		ActivationTTL:    activationTTL,
		AccessTTL:        accessTTL,
		RefreshTTL:       refreshTTL,
	}
}

// activationClaims mirrors the payload of an activation token: the
// pending signup plus the 4-digit code the candidate must echo back.
type activationClaims struct {
	User model.PendingRegistration `json:"user"`
	Code string                    `json:"activation_code"`
	jwt.RegisteredClaims
}

// SignAccess mints a short-lived access token whose subject is the
// identity id.
func (c *TokenCodec) SignAccess(userID uint64) (SignedToken, error) {
	return c.signID(c.accessSecret, userID, c.AccessTTL)
}

// SignRefresh mints a refresh token for the identity id.
func (c *TokenCodec) SignRefresh(userID uint64) (SignedToken, error) {
	return c.signID(c.refreshSecret, userID, c.RefreshTTL)
}

// VerifyAccess validates an access token and returns the identity id.
func (c *TokenCodec) VerifyAccess(token string) (uint64, error) {
	return c.verifyID(c.accessSecret, token)
}

// VerifyRefresh validates a refresh token and returns the identity id.
func (c *TokenCodec) VerifyRefresh(token string) (uint64, error) {
	return c.verifyID(c.refreshSecret, token)
}

// SignActivation wraps a pending registration and its activation code
// in a signed, self-expiring token. Nothing is persisted; the token is
// the pending-user record.
func (c *TokenCodec) SignActivation(p model.PendingRegistration, code string) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(c.ActivationTTL)
	jti, err := randomHex(8)
	if err != nil {
		return SignedToken{}, err
	}
	claims := activationClaims{
		User: p,
		Code: code,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.activationSecret)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyActivation validates an activation token and returns the
// embedded pending registration and code.
func (c *TokenCodec) VerifyActivation(token string) (model.PendingRegistration, string, error) {
	claims := &activationClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.activationSecret, nil
	})
	if err != nil || !tok.Valid {
		return model.PendingRegistration{}, "", ErrInvalidToken
	}
	return claims.User, claims.Code, nil
}

// signID issues an HS256 token carrying the identity id as subject.
// The random jti keeps two tokens minted within the same second from
// serializing to the same string.
func (c *TokenCodec) signID(secret []byte, userID uint64, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	jti, err := randomHex(8)
	if err != nil {
		return SignedToken{}, err
	}
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"jti": jti,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

func (c *TokenCodec) verifyID(secret []byte, token string) (uint64, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
