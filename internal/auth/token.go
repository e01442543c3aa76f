package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// DefaultMaxAge is how long an issued credential stays valid.
const DefaultMaxAge = 7 * 24 * time.Hour

var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpired           = errors.New("credential expired")
)

// Verifier checks HS256 credentials carrying the user id as subject and the
// issue time as iat.
type Verifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewVerifier(secret string, maxAge time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Verifier{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// Verify validates the signature and age of token and returns its user id.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.Wrap(ErrInvalidCredential, "empty token")
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", errors.Wrap(ErrExpired, err.Error())
		}
		return "", errors.Wrap(ErrInvalidCredential, err.Error())
	}
	if !parsed.Valid {
		return "", ErrInvalidCredential
	}

	if claims.IssuedAt == nil {
		return "", errors.Wrap(ErrInvalidCredential, "missing iat")
	}
	if v.now().Sub(claims.IssuedAt.Time) > v.maxAge {
		return "", ErrExpired
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errors.Wrap(ErrInvalidCredential, "missing subject")
	}
	return subject, nil
}

// Issue signs a credential for userID issued at issuedAt. The real issuer is
// the login service; this exists for local tooling and tests.
func Issue(secret, userID string, issuedAt time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return signed, errors.Wrap(err, "sign credential")
}
