package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned for input that cannot be parsed as a token.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature is returned for a token signed with a different
	// key or altered after signing.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired is returned once now >= exp. The boundary instant itself
	// is expired; no clock skew allowance is applied.
	ErrExpired = errors.New("token expired")
)

// Claims is the closed claim schema carried by every token this codec
// produces: sub (external identity id), ver (identity version at issuance),
// iat, and exp, all in whole Unix seconds. Nothing else is ever encoded;
// profile data belongs in the identity store, not in tokens.
type Claims struct {
	Version int64 `json:"ver"`
	jwt.RegisteredClaims
}

// Codec signs and verifies compact tokens with HMAC-SHA256 over a shared
// secret. It performs no I/O and applies no business rules; expiry relative
// to the current clock is the only time-dependent check in Decode.
type Codec struct {
	secret []byte
}

// NewCodec copies the secret so later mutation by the caller cannot affect
// signing.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty signing secret")
	}
	return &Codec{secret: append([]byte(nil), secret...)}, nil
}

// Encode produces a signed token for subject with the given version claim,
// issued at issuedAt and expiring ttl later. Output is deterministic for
// identical inputs; tokens carry iat/exp so this is not a replay concern.
func (c *Codec) Encode(subject string, version int64, ttl time.Duration, issuedAt time.Time) (string, error) {
	if subject == "" {
		return "", errors.New("empty subject")
	}
	if ttl < time.Second {
		return "", errors.New("ttl below one second")
	}

	issuedAt = issuedAt.Truncate(time.Second)
	claims := Claims{
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies signature and expiry and returns the claims. It never
// panics on attacker-controlled input; every failure is one of the three
// typed errors above.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)

	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}

	return claims, nil
}
