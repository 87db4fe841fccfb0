package storage

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const downloadAudience = "certificate-download"

// SignedURLSigner creates and validates short-lived artifact download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type downloadClaims struct {
	CertificateID string `json:"cid"`
	Path          string `json:"path"`
	jwt.RegisteredClaims
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a signed token referencing the certificate and its stored artifact path.
func (s *SignedURLSigner) Generate(certificateID, relPath string) (string, time.Time, error) {
	if certificateID == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("certificateID and relPath required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)
	claims := downloadClaims{
		CertificateID: certificateID,
		Path:          relPath,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{downloadAudience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return token, expiresAt.Truncate(time.Second), nil
}

// Parse validates a token and returns the embedded metadata.
func (s *SignedURLSigner) Parse(token string) (certificateID, relPath string, expiresAt time.Time, err error) {
	claims := &downloadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("invalid download token: %w", err)
	}
	if !parsed.Valid || claims.CertificateID == "" || claims.Path == "" {
		return "", "", time.Time{}, fmt.Errorf("invalid download token claims")
	}
	return claims.CertificateID, claims.Path, claims.ExpiresAt.Time, nil
}
