package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	cases := []struct {
		student, course, want string
	}{
		{"Siti Rahmawati", "Sustainable Rice Farming Fundamentals", "Certificate_Siti_Rahmawati_Sustainable_Rice_Far.pdf"},
		{"  Ana   María  ", "Go", "Certificate_Ana_María_Go.pdf"},
		{"O'Brien / Jr.", "Intro: Soil <pH>", "Certificate_OBrien_Jr_Intro_Soil_pH.pdf"},
		{"", "", "Certificate.pdf"},
		{"Budi", "Hydroponics 101     Advanced", "Certificate_Budi_Hydroponics_101.pdf"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Filename(tc.student, tc.course), tc.student+"|"+tc.course)
	}
}

func TestFilenameIsStable(t *testing.T) {
	first := Filename("Siti Rahmawati", "Sustainable Rice Farming Fundamentals")
	second := Filename("Siti Rahmawati", "Sustainable Rice Farming Fundamentals")
	assert.Equal(t, first, second)
}
