package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
	"github.com/noah-isme/edu-certificate-api/pkg/qrcode"
)

const verifyURL = "https://certs.example.com/verify/AGRO-1756572958564-FO4KBD"

type failingQR struct{}

func (failingQR) PNG(string) ([]byte, error) { return nil, errors.New("encoder offline") }

type staticQR struct{ data []byte }

func (s staticQR) PNG(string) ([]byte, error) { return s.data, nil }

func sampleCertificate() *models.Certificate {
	return &models.Certificate{
		ID:                "cert-1",
		CertificateNumber: "AGRO-1756572958564-FO4KBD",
		StudentName:       "Siti Rahmawati",
		CourseTitle:       "Sustainable Rice Farming Fundamentals",
		CourseCategory:    "Agriculture",
		CourseLevel:       "Beginner",
		DurationHours:     12,
		InstructorName:    "Dr. Budi Santoso",
		FinalGrade:        86.5,
		Status:            models.CertificateStatusIssued,
		IssuedAt:          time.Date(2025, 8, 30, 10, 0, 0, 0, time.UTC),
	}
}

func sampleTemplate(background string) *models.Template {
	return &models.Template{
		ID:   "tpl-1",
		Name: "Classic",
		TemplateConfig: models.TemplateConfig{
			Fields: map[string]models.FieldStyle{
				models.FieldTitle:          {X: 400, Y: 100, Size: 34, Color: "#0F172A", Font: "times-bold"},
				models.FieldStudentName:    {X: 400, Y: 210, Size: 30, Color: "#047857", Font: "helvetica-bold"},
				models.FieldCourseTitle:    {X: 400, Y: 300, Size: 22},
				models.FieldInstructorName: {X: 520, Y: 495, Size: 13},
				models.FieldCompletionDate: {X: 220, Y: 495, Size: 13},
				models.FieldGrade:          {X: 540, Y: 384, Size: 13},
				models.FieldQR:             {X: 700, Y: 420, Size: 80},
				"watermark":                {X: 1, Y: 1, Size: 99},
			},
			BackgroundImage: background,
		},
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 250, G: 245, B: 230, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func assertPDF(t *testing.T, doc *RenderedCertificate) {
	t.Helper()
	require.NotNil(t, doc)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF-")))
	assert.Equal(t, "Certificate_Siti_Rahmawati_Sustainable_Rice_Far.pdf", doc.Filename)
}

func TestRenderWithoutTemplateUsesDefaults(t *testing.T) {
	renderer := NewCertificateRenderer(nil, qrcode.NewGenerator(128), nil)

	doc, err := renderer.Render(context.Background(), RenderInput{Certificate: sampleCertificate(), VerificationURL: verifyURL})
	require.NoError(t, err)
	assertPDF(t, doc)
	assert.False(t, doc.Report.Degraded())
}

func TestRenderWithBackgroundImage(t *testing.T) {
	background := pngBytes(t, 40, 30)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(background)
	}))
	defer srv.Close()

	renderer := NewCertificateRenderer(NewHTTPAssetLoader(time.Second), qrcode.NewGenerator(128), nil)
	doc, err := renderer.Render(context.Background(), RenderInput{
		Certificate:     sampleCertificate(),
		Template:        sampleTemplate(srv.URL + "/bg.png"),
		VerificationURL: verifyURL,
	})
	require.NoError(t, err)
	assertPDF(t, doc)
	assert.False(t, doc.Report.Degraded())
}

func TestRenderUnreachableBackgroundFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	unreachable := srv.URL + "/missing.png"
	srv.Close()

	renderer := NewCertificateRenderer(NewHTTPAssetLoader(200*time.Millisecond), qrcode.NewGenerator(128), nil)
	doc, err := renderer.Render(context.Background(), RenderInput{
		Certificate:     sampleCertificate(),
		Template:        sampleTemplate(unreachable),
		VerificationURL: verifyURL,
	})
	require.NoError(t, err)
	assertPDF(t, doc)
	require.Len(t, doc.Report.Fallbacks, 1)
	assert.Equal(t, StageBackground, doc.Report.Fallbacks[0].Stage)
	assert.NotEmpty(t, doc.Report.Fallbacks[0].Reason)
}

func TestRenderCorruptBackgroundFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer srv.Close()

	renderer := NewCertificateRenderer(NewHTTPAssetLoader(time.Second), qrcode.NewGenerator(128), nil)
	doc, err := renderer.Render(context.Background(), RenderInput{
		Certificate:     sampleCertificate(),
		Template:        sampleTemplate(srv.URL),
		VerificationURL: verifyURL,
	})
	require.NoError(t, err)
	assertPDF(t, doc)
	require.Len(t, doc.Report.Fallbacks, 1)
	assert.Equal(t, StageBackground, doc.Report.Fallbacks[0].Stage)
}

func TestRenderQRFailurePrintsURL(t *testing.T) {
	renderer := NewCertificateRenderer(nil, failingQR{}, nil)

	doc, err := renderer.Render(context.Background(), RenderInput{
		Certificate:     sampleCertificate(),
		Template:        sampleTemplate(""),
		VerificationURL: verifyURL,
	})
	require.NoError(t, err)
	assertPDF(t, doc)
	require.Len(t, doc.Report.Fallbacks, 1)
	assert.Equal(t, StageQR, doc.Report.Fallbacks[0].Stage)
	assert.Contains(t, doc.Report.Fallbacks[0].Reason, "encoder offline")
}

func TestRenderUndecodableQRFallsBack(t *testing.T) {
	renderer := NewCertificateRenderer(nil, staticQR{data: []byte("garbage")}, nil)

	doc, err := renderer.Render(context.Background(), RenderInput{Certificate: sampleCertificate(), VerificationURL: verifyURL})
	require.NoError(t, err)
	assertPDF(t, doc)
	require.Len(t, doc.Report.Fallbacks, 1)
	assert.Equal(t, StageQR, doc.Report.Fallbacks[0].Stage)
}

func TestRenderBothStagesDegrade(t *testing.T) {
	renderer := NewCertificateRenderer(nil, nil, nil)

	doc, err := renderer.Render(context.Background(), RenderInput{
		Certificate:     sampleCertificate(),
		Template:        sampleTemplate("https://cdn.example.com/bg.png"),
		VerificationURL: verifyURL,
	})
	require.NoError(t, err)
	assertPDF(t, doc)
	assert.Len(t, doc.Report.Fallbacks, 2)
}

func TestRenderRequiresCertificate(t *testing.T) {
	_, err := NewCertificateRenderer(nil, nil, nil).Render(context.Background(), RenderInput{})
	assert.ErrorIs(t, err, appErrors.ErrRender)
}

func TestResolveLayoutInheritsDefaults(t *testing.T) {
	layout := ResolveLayout(sampleTemplate("").TemplateConfig)

	title := layout[models.FieldTitle]
	assert.Equal(t, 34.0, title.Size)
	assert.Equal(t, "times-bold", title.Font)

	course := layout[models.FieldCourseTitle]
	assert.Equal(t, 22.0, course.Size)
	assert.Equal(t, defaultLayout[models.FieldCourseTitle].Color, course.Color)
	assert.Equal(t, defaultLayout[models.FieldCourseTitle].Font, course.Font)

	assert.Equal(t, defaultLayout[models.FieldCertificateNumber], layout[models.FieldCertificateNumber])
	_, ok := layout["watermark"]
	assert.False(t, ok)
}

func TestQRPlacementStaysOnCanvas(t *testing.T) {
	left, top, size := qrPlacement(models.FieldStyle{X: 700, Y: 420, Size: 90})
	assert.Equal(t, 90.0, size)
	assert.Equal(t, 420.0, top)
	assert.Equal(t, 655.0, left)

	_, top, size = qrPlacement(models.FieldStyle{X: 400, Y: 590, Size: 90})
	assert.Equal(t, CanvasHeight-canvasMargin-size-qrCaptionHeight, top)

	_, top, size = qrPlacement(models.FieldStyle{X: 400, Y: 0, Size: 2000})
	assert.Equal(t, canvasMargin, top)
	assert.LessOrEqual(t, top+size+qrCaptionHeight, CanvasHeight-canvasMargin)
}

func TestParseHexColor(t *testing.T) {
	fallback := [3]int{1, 2, 3}
	cases := []struct {
		in      string
		r, g, b int
	}{
		{"#1D4ED8", 29, 78, 216},
		{"fff", 255, 255, 255},
		{"#abc", 170, 187, 204},
		{"", 1, 2, 3},
		{"#zzzzzz", 1, 2, 3},
		{"#12345", 1, 2, 3},
	}
	for _, tc := range cases {
		r, g, b := parseHexColor(tc.in, fallback)
		assert.Equal(t, [3]int{tc.r, tc.g, tc.b}, [3]int{r, g, b}, tc.in)
	}
}

func TestParseFont(t *testing.T) {
	cases := map[string][2]string{
		"helvetica-bold":    {"Helvetica", "B"},
		"Times-Italic":      {"Times", "I"},
		"courier":           {"Courier", ""},
		"serif bold-italic": {"Times", "BI"},
		"comic-sans":        {"Helvetica", ""},
		"":                  {"Helvetica", ""},
	}
	for in, want := range cases {
		family, style := parseFont(in)
		assert.Equal(t, want, [2]string{family, style}, in)
	}
}
