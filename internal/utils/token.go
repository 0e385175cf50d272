package utils // package utils provides helpers for password hashing, bearer tokens and OTP codes

import (
	"crypto/sha256" // SHA-256 hashing of issued tokens
	"encoding/hex"  // hex encoding of the digest
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by ParseBearerToken for any malformed,
// expired or wrongly signed token.
var ErrInvalidToken = errors.New("invalid token")

// BearerToken is a signed HS256 JWT handed to the client together with the
// SHA-256 digest persisted in personal_access_tokens.  The JWT proves
// integrity and expiry; the stored digest makes it revocable.
type BearerToken struct {
	Token string    // serialized JWT returned to the client
	Hash  string    // hex SHA-256 of Token, stored server side
	Exp   time.Time // UTC expiration time
}

// BearerClaims is the identity carried by a parsed token.
type BearerClaims struct {
	UserID uint64
}

// NewBearerToken signs a token for the user valid for ttlMin minutes.  The
// claims are sub (user id), role, jti, iat and exp.  The random jti makes
// two tokens issued in the same second distinct.
func NewBearerToken(secret string, userID uint64, role string, ttlMin int) (BearerToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"jti":  uuid.NewString(),
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return BearerToken{}, err
	}
	return BearerToken{Token: signed, Hash: HashToken(signed), Exp: exp}, nil
}

// ParseBearerToken validates the signature and expiry of raw and returns its
// claims.  Only HMAC signing methods are accepted.
func ParseBearerToken(secret, raw string) (BearerClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return BearerClaims{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return BearerClaims{}, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return BearerClaims{}, ErrInvalidToken
	}
	uid, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || uid == 0 {
		return BearerClaims{}, ErrInvalidToken
	}
	return BearerClaims{UserID: uid}, nil
}

// HashToken returns the SHA-256 hash of a bearer token as a hex string.
// Storing only the hash means a leaked table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
