package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
)

const (
	defaultNumberPrefix = "CERT"
	numberSuffixLength  = 6
	numberAlphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	certificateNumberPattern = regexp.MustCompile(`^[A-Z0-9]{2,10}-\d{13}-[A-Z0-9]{6}$`)
	prefixCleaner            = regexp.MustCompile(`[^A-Z0-9]`)
)

// ValidCertificateNumber reports whether number has the PREFIX-<ms timestamp>-<suffix> shape.
func ValidCertificateNumber(number string) bool {
	return certificateNumberPattern.MatchString(number)
}

// NormalizeCertificateNumber trims and upper-cases user input.
func NormalizeCertificateNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// NumberMinter produces certificate numbers. Uniqueness is enforced by the store.
type NumberMinter struct {
	prefix string
	now    func() time.Time
	random func(n int) (string, error)
}

// NewNumberMinter constructs a minter for prefix; invalid prefixes fall back to CERT.
func NewNumberMinter(prefix string) *NumberMinter {
	return &NumberMinter{prefix: normalizePrefix(prefix), now: time.Now, random: randomSuffix}
}

// Prefix returns the normalized prefix in use.
func (m *NumberMinter) Prefix() string {
	return m.prefix
}

// Mint returns a fresh certificate number.
func (m *NumberMinter) Mint() (string, error) {
	suffix, err := m.random(numberSuffixLength)
	if err != nil {
		return "", fmt.Errorf("generate certificate suffix: %w", err)
	}
	return fmt.Sprintf("%s-%013d-%s", m.prefix, m.now().UnixMilli(), suffix), nil
}

func normalizePrefix(prefix string) string {
	cleaned := prefixCleaner.ReplaceAllString(strings.ToUpper(strings.TrimSpace(prefix)), "")
	if len(cleaned) > 10 {
		cleaned = cleaned[:10]
	}
	if len(cleaned) < 2 {
		return defaultNumberPrefix
	}
	return cleaned
}

func randomSuffix(n int) (string, error) {
	max := big.NewInt(int64(len(numberAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = numberAlphabet[idx.Int64()]
	}
	return string(out), nil
}
