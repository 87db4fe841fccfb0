package export

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

// Canvas geometry in points; the page is landscape.
const (
	CanvasWidth  = 800.0
	CanvasHeight = 600.0
	canvasMargin = 24.0

	DefaultTitle     = "Certificate of Completion"
	ConnectivePhrase = "has successfully completed the course"

	qrCaption       = "Scan to verify"
	defaultQRSize   = 90.0
	qrCaptionHeight = 14.0
	dateLayout      = "January 2, 2006"
)

var (
	defaultTextColor = [3]int{31, 41, 55}
	accentColor      = [3]int{184, 134, 11}
	paperColor       = [3]int{255, 253, 247}
)

// defaultLayout positions every element the renderer draws. x is the horizontal centre, y the baseline.
var defaultLayout = map[string]models.FieldStyle{
	models.FieldTitle:             {X: 400, Y: 110, Size: 36, Color: "#1F2937", Font: "helvetica-bold"},
	models.FieldStudentName:       {X: 400, Y: 220, Size: 32, Color: "#1D4ED8", Font: "times-bold"},
	models.FieldConnective:        {X: 400, Y: 258, Size: 15, Color: "#4B5563", Font: "helvetica-italic"},
	models.FieldCourseTitle:       {X: 400, Y: 300, Size: 24, Color: "#111827", Font: "helvetica-bold"},
	models.FieldCourseLevel:       {X: 260, Y: 360, Size: 13, Color: "#374151", Font: "helvetica"},
	models.FieldCourseDuration:    {X: 260, Y: 384, Size: 13, Color: "#374151", Font: "helvetica"},
	models.FieldCourseCategory:    {X: 540, Y: 360, Size: 13, Color: "#374151", Font: "helvetica"},
	models.FieldGrade:             {X: 540, Y: 384, Size: 13, Color: "#374151", Font: "helvetica-bold"},
	models.FieldCompletionDate:    {X: 220, Y: 490, Size: 14, Color: "#1F2937", Font: "helvetica"},
	models.FieldInstructorName:    {X: 490, Y: 490, Size: 14, Color: "#1F2937", Font: "times-italic"},
	models.FieldCertificateNumber: {X: 400, Y: 562, Size: 10, Color: "#6B7280", Font: "courier"},
	models.FieldQR:                {X: 700, Y: 420, Size: defaultQRSize, Color: "#4B5563", Font: "helvetica"},
}

// QREncoder turns a payload into a PNG QR code.
type QREncoder interface {
	PNG(data string) ([]byte, error)
}

// RenderInput is everything needed to draw one certificate.
type RenderInput struct {
	Certificate     *models.Certificate
	Template        *models.Template
	VerificationURL string
}

// RenderedCertificate is the produced document.
type RenderedCertificate struct {
	Filename string
	Content  []byte
	Report   RenderReport
}

// CertificateRenderer draws certificates onto a fixed landscape canvas.
type CertificateRenderer struct {
	assets AssetLoader
	qr     QREncoder
	logger *zap.Logger
}

// NewCertificateRenderer constructs a renderer. Nil collaborators disable the matching stage.
func NewCertificateRenderer(assets AssetLoader, qr QREncoder, logger *zap.Logger) *CertificateRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateRenderer{assets: assets, qr: qr, logger: logger}
}

// Render produces a single-page PDF. Background and QR failures degrade to fallbacks and are
// reported, never returned; only canvas failures yield an error.
func (r *CertificateRenderer) Render(ctx context.Context, input RenderInput) (*RenderedCertificate, error) {
	cert := input.Certificate
	if cert == nil {
		return nil, appErrors.Clone(appErrors.ErrRender, "certificate is required")
	}
	var cfg models.TemplateConfig
	if input.Template != nil {
		cfg = input.Template.TemplateConfig
	}
	layout := ResolveLayout(cfg)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: CanvasHeight, Ht: CanvasWidth},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(DefaultTitle, true)
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRender.Code, appErrors.ErrRender.Status, "failed to create certificate canvas")
	}

	c := &canvas{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	var report RenderReport

	report.record(c.drawBackground(r.backgroundStage(ctx, cfg.BackgroundImage)))
	c.drawBody(layout, cert)
	report.record(c.drawQR(layout[models.FieldQR], r.qrStage(input.VerificationURL), input.VerificationURL))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRender.Code, appErrors.ErrRender.Status, "failed to render certificate")
	}

	for _, fallback := range report.Fallbacks {
		r.logger.Warn("certificate render degraded",
			zap.String("certificate_id", cert.ID),
			zap.String("stage", string(fallback.Stage)),
			zap.String("reason", fallback.Reason),
		)
	}

	return &RenderedCertificate{
		Filename: Filename(cert.StudentName, cert.CourseTitle),
		Content:  buf.Bytes(),
		Report:   report,
	}, nil
}

func (r *CertificateRenderer) backgroundStage(ctx context.Context, url string) StageResult {
	url = strings.TrimSpace(url)
	if url == "" {
		return Skipped(StageBackground)
	}
	if r.assets == nil {
		return Fallback(StageBackground, "no asset loader configured")
	}
	data, err := r.assets.Load(ctx, url)
	if err != nil {
		return Fallback(StageBackground, err.Error())
	}
	return decodeImage(StageBackground, "background", data)
}

func (r *CertificateRenderer) qrStage(url string) StageResult {
	if strings.TrimSpace(url) == "" {
		return Fallback(StageQR, "verification url missing")
	}
	if r.qr == nil {
		return Fallback(StageQR, "no qr encoder configured")
	}
	png, err := r.qr.PNG(url)
	if err != nil {
		return Fallback(StageQR, fmt.Sprintf("generate qr: %v", err))
	}
	return decodeImage(StageQR, "qr", png)
}

// ResolveLayout overlays template positions onto the default layout. Zero size, empty color
// and empty font inherit the default for that field; unknown fields are dropped.
func ResolveLayout(cfg models.TemplateConfig) map[string]models.FieldStyle {
	layout := make(map[string]models.FieldStyle, len(defaultLayout))
	for name, def := range defaultLayout {
		style, ok := cfg.Fields[name]
		if !ok {
			layout[name] = def
			continue
		}
		if style.Size <= 0 {
			style.Size = def.Size
		}
		if strings.TrimSpace(style.Color) == "" {
			style.Color = def.Color
		}
		if strings.TrimSpace(style.Font) == "" {
			style.Font = def.Font
		}
		layout[name] = style
	}
	return layout
}

type canvas struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (c *canvas) drawBackground(result StageResult) StageResult {
	if result.OK() {
		err := c.image(result.Image, 0, 0, CanvasWidth, CanvasHeight)
		if err == nil {
			return result
		}
		result = Fallback(StageBackground, fmt.Sprintf("embed image: %v", err))
	}
	c.pdf.SetFillColor(paperColor[0], paperColor[1], paperColor[2])
	c.pdf.Rect(0, 0, CanvasWidth, CanvasHeight, "F")
	c.pdf.SetDrawColor(accentColor[0], accentColor[1], accentColor[2])
	c.pdf.SetLineWidth(4)
	c.pdf.Rect(18, 18, CanvasWidth-36, CanvasHeight-36, "D")
	c.pdf.SetLineWidth(1)
	c.pdf.Rect(30, 30, CanvasWidth-60, CanvasHeight-60, "D")
	return result
}

func (c *canvas) drawBody(layout map[string]models.FieldStyle, cert *models.Certificate) {
	title := layout[models.FieldTitle]
	width := c.centered(title, DefaultTitle)
	c.pdf.SetDrawColor(accentColor[0], accentColor[1], accentColor[2])
	c.pdf.SetLineWidth(1.5)
	c.pdf.Line(title.X-width/2, title.Y+12, title.X+width/2, title.Y+12)

	c.centered(layout[models.FieldStudentName], cert.StudentName)
	c.centered(layout[models.FieldConnective], ConnectivePhrase)
	c.centered(layout[models.FieldCourseTitle], cert.CourseTitle)

	c.centered(layout[models.FieldCourseLevel], "Level: "+orDash(cert.CourseLevel))
	c.centered(layout[models.FieldCourseDuration], fmt.Sprintf("Duration: %d hours", cert.DurationHours))
	c.centered(layout[models.FieldCourseCategory], "Category: "+orDash(cert.CourseCategory))
	c.centered(layout[models.FieldGrade], "Grade: "+strconv.FormatFloat(cert.FinalGrade, 'f', 2, 64))

	c.signature(layout[models.FieldCompletionDate], cert.IssuedAt.UTC().Format(dateLayout), "Date of Completion")
	c.signature(layout[models.FieldInstructorName], orDash(cert.InstructorName), "Instructor")

	c.centered(layout[models.FieldCertificateNumber], "Certificate No. "+cert.CertificateNumber)
}

// qrPlacement keeps the code and its caption inside the canvas margins.
func qrPlacement(style models.FieldStyle) (left, top, size float64) {
	size = style.Size
	if size <= 0 {
		size = defaultQRSize
	}
	if limit := CanvasHeight - 2*canvasMargin - qrCaptionHeight; size > limit {
		size = limit
	}
	left = clampLeft(style.X-size/2, size)
	top = style.Y
	if bottom := CanvasHeight - canvasMargin - size - qrCaptionHeight; top > bottom {
		top = bottom
	}
	if top < canvasMargin {
		top = canvasMargin
	}
	return left, top, size
}

func (c *canvas) drawQR(style models.FieldStyle, result StageResult, url string) StageResult {
	left, top, size := qrPlacement(style)
	caption := models.FieldStyle{X: left + size/2, Y: top + size + 12, Size: 9, Color: style.Color, Font: "helvetica"}

	if result.OK() {
		err := c.image(result.Image, left, top, size, size)
		if err == nil {
			c.centered(caption, qrCaption)
			return result
		}
		result = Fallback(StageQR, fmt.Sprintf("embed image: %v", err))
	}
	if url == "" {
		return result
	}

	boxWidth := size + 60
	boxLeft := clampLeft(left+size/2-boxWidth/2, boxWidth)
	c.centered(models.FieldStyle{X: boxLeft + boxWidth/2, Y: top + 10, Size: 9, Color: style.Color, Font: "helvetica-bold"}, "Verify at:")
	c.pdf.SetFont("Courier", "", 7)
	r, g, b := parseHexColor(style.Color, defaultTextColor)
	c.pdf.SetTextColor(r, g, b)
	c.pdf.SetXY(boxLeft, top+16)
	c.pdf.MultiCell(boxWidth, 9, c.tr(url), "", "C", false)
	return result
}

func (c *canvas) signature(style models.FieldStyle, value, label string) {
	c.centered(style, value)
	c.pdf.SetDrawColor(107, 114, 128)
	c.pdf.SetLineWidth(0.75)
	left := clampLeft(style.X-80, 160)
	c.pdf.Line(left, style.Y+8, left+160, style.Y+8)
	c.centered(models.FieldStyle{X: left + 80, Y: style.Y + 24, Size: 10, Color: "#6B7280", Font: "helvetica"}, label)
}

// centered draws txt centred on style.X, shrinking the font when the text is wider than the canvas.
func (c *canvas) centered(style models.FieldStyle, txt string) float64 {
	family, fontStyle := parseFont(style.Font)
	size := style.Size
	if size <= 0 {
		size = 12
	}
	c.pdf.SetFont(family, fontStyle, size)
	r, g, b := parseHexColor(style.Color, defaultTextColor)
	c.pdf.SetTextColor(r, g, b)

	s := c.tr(txt)
	width := c.pdf.GetStringWidth(s)
	if maxWidth := CanvasWidth - 2*canvasMargin; width > maxWidth {
		c.pdf.SetFontSize(size * maxWidth / width)
		width = c.pdf.GetStringWidth(s)
	}
	c.pdf.Text(clampLeft(style.X-width/2, width), style.Y, s)
	return width
}

func (c *canvas) image(img *ImageAsset, x, y, w, h float64) error {
	opts := gofpdf.ImageOptions{ImageType: img.Type}
	c.pdf.RegisterImageOptionsReader(img.Name, opts, bytes.NewReader(img.Data))
	if err := c.pdf.Error(); err != nil {
		c.pdf.ClearError()
		return err
	}
	c.pdf.ImageOptions(img.Name, x, y, w, h, false, opts, 0, "")
	if err := c.pdf.Error(); err != nil {
		c.pdf.ClearError()
		return err
	}
	return nil
}

func clampLeft(left, width float64) float64 {
	if left+width > CanvasWidth-canvasMargin {
		left = CanvasWidth - canvasMargin - width
	}
	if left < canvasMargin {
		left = canvasMargin
	}
	return left
}

func parseFont(spec string) (family, style string) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	name, variant := spec, ""
	if idx := strings.IndexAny(spec, "-_ "); idx >= 0 {
		name, variant = spec[:idx], spec[idx+1:]
	}
	switch name {
	case "times", "serif":
		family = "Times"
	case "courier", "mono", "monospace":
		family = "Courier"
	default:
		family = "Helvetica"
	}
	switch strings.ReplaceAll(variant, "-", "") {
	case "bold", "b":
		style = "B"
	case "italic", "i", "oblique":
		style = "I"
	case "bolditalic", "bi":
		style = "BI"
	}
	return family, style
}

func parseHexColor(hex string, fallback [3]int) (int, int, int) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return fallback[0], fallback[1], fallback[2]
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallback[0], fallback[1], fallback[2]
	}
	return int(value >> 16 & 0xFF), int(value >> 8 & 0xFF), int(value & 0xFF)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
