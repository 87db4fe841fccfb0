package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberMinterFormat(t *testing.T) {
	m := NewNumberMinter("agro")
	m.now = func() time.Time { return time.UnixMilli(1756572958564) }
	m.random = func(n int) (string, error) { return "FO4KBD", nil }

	number, err := m.Mint()
	require.NoError(t, err)
	assert.Equal(t, "AGRO-1756572958564-FO4KBD", number)
	assert.True(t, ValidCertificateNumber(number))
}

func TestNumberMinterRandomSuffix(t *testing.T) {
	m := NewNumberMinter("")
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		number, err := m.Mint()
		require.NoError(t, err)
		require.True(t, ValidCertificateNumber(number), number)
		seen[number] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestNumberMinterPropagatesRandomFailure(t *testing.T) {
	m := NewNumberMinter("CERT")
	m.random = func(int) (string, error) { return "", errors.New("entropy exhausted") }
	_, err := m.Mint()
	assert.Error(t, err)
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "CERT", NewNumberMinter("").Prefix())
	assert.Equal(t, "CERT", NewNumberMinter("x").Prefix())
	assert.Equal(t, "DATASCI", NewNumberMinter(" data-sci ").Prefix())
	assert.Equal(t, "ABCDEFGHIJ", NewNumberMinter("abcdefghijklmnop").Prefix())
}

func TestValidCertificateNumber(t *testing.T) {
	assert.True(t, ValidCertificateNumber("AGRO-1756572958564-FO4KBD"))
	assert.False(t, ValidCertificateNumber("BOGUS-000-000"))
	assert.False(t, ValidCertificateNumber("agro-1756572958564-fo4kbd"))
	assert.False(t, ValidCertificateNumber("AGRO-1756572958564-FO4KB"))
	assert.False(t, ValidCertificateNumber(""))
	assert.Equal(t, "AGRO-1756572958564-FO4KBD", NormalizeCertificateNumber("  agro-1756572958564-fo4kbd "))
}
