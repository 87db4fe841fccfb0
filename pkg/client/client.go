// Package client is a typed HTTP client for the certificate API.
package client

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

// Config configures the API client.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
}

// Client talks to the certificate API over HTTP.
type Client struct {
	http *resty.Client
}

type envelope[T any] struct {
	Data       T                  `json:"data"`
	Error      *appErrors.Error   `json:"error,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

type errorEnvelope struct {
	Error *appErrors.Error `json:"error,omitempty"`
}

// New builds a client. BaseURL includes the API prefix, e.g. https://host/api/v1.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}
	return &Client{http: httpClient}
}

// Eligibility evaluates a student's eligibility for a course.
func (c *Client) Eligibility(ctx context.Context, studentID, courseID string) (*models.EligibilityResult, error) {
	path := fmt.Sprintf("/courses/%s/eligibility/%s", url.PathEscape(courseID), url.PathEscape(studentID))
	result, _, err := call[*models.EligibilityResult](ctx, c, http.MethodGet, path, nil, nil)
	return result, err
}

// Generate requests eligibility-gated issuance.
func (c *Client) Generate(ctx context.Context, req dto.GenerateCertificateRequest) (*dto.CertificateResult, error) {
	result, _, err := call[*dto.CertificateResult](ctx, c, http.MethodPost, "/certificates/generate", req, nil)
	return result, err
}

// Issue performs privileged direct issuance.
func (c *Client) Issue(ctx context.Context, req dto.IssueCertificateRequest) (*dto.CertificateResult, error) {
	result, _, err := call[*dto.CertificateResult](ctx, c, http.MethodPost, "/certificates/issue", req, nil)
	return result, err
}

// Revoke revokes a certificate with a reason.
func (c *Client) Revoke(ctx context.Context, id, reason string) (*models.Certificate, error) {
	path := fmt.Sprintf("/certificates/%s/revoke", url.PathEscape(id))
	result, _, err := call[dto.RevokeCertificateResponse](ctx, c, http.MethodPut, path, dto.RevokeCertificateRequest{Reason: reason}, nil)
	if err != nil {
		return nil, err
	}
	return result.Certificate, nil
}

// Certificate loads one certificate.
func (c *Client) Certificate(ctx context.Context, id string) (*models.Certificate, error) {
	result, _, err := call[*models.Certificate](ctx, c, http.MethodGet, "/certificates/"+url.PathEscape(id), nil, nil)
	return result, err
}

// StudentCertificates lists a student's certificates.
func (c *Client) StudentCertificates(ctx context.Context, studentID string) ([]models.Certificate, error) {
	path := fmt.Sprintf("/students/%s/certificates", url.PathEscape(studentID))
	result, _, err := call[dto.CertificateListResponse](ctx, c, http.MethodGet, path, nil, nil)
	return result.Certificates, err
}

// CourseCertificates lists one page of a course's certificates.
func (c *Client) CourseCertificates(ctx context.Context, courseID string, page, limit int) ([]models.Certificate, *models.Pagination, error) {
	path := fmt.Sprintf("/courses/%s/certificates", url.PathEscape(courseID))
	query := map[string]string{}
	if page > 0 {
		query["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		query["limit"] = strconv.Itoa(limit)
	}
	result, pagination, err := call[dto.CertificateListResponse](ctx, c, http.MethodGet, path, nil, query)
	return result.Certificates, pagination, err
}

// Stats fetches aggregate certificate statistics.
func (c *Client) Stats(ctx context.Context, filter models.StatsFilter) (*models.CertificateStats, error) {
	query := map[string]string{}
	if filter.CourseID != "" {
		query["courseId"] = filter.CourseID
	}
	if filter.From != nil {
		query["from"] = filter.From.Format("2006-01-02")
	}
	if filter.To != nil {
		query["to"] = filter.To.Format("2006-01-02")
	}
	result, _, err := call[*models.CertificateStats](ctx, c, http.MethodGet, "/certificates/stats", nil, query)
	return result, err
}

// Templates lists certificate templates.
func (c *Client) Templates(ctx context.Context) ([]models.Template, error) {
	result, _, err := call[dto.TemplateListResponse](ctx, c, http.MethodGet, "/templates", nil, nil)
	return result.Templates, err
}

// CreateTemplate creates a template.
func (c *Client) CreateTemplate(ctx context.Context, req dto.TemplateRequest) (*models.Template, error) {
	result, _, err := call[*models.Template](ctx, c, http.MethodPost, "/templates", req, nil)
	return result, err
}

// UpdateTemplate replaces a template.
func (c *Client) UpdateTemplate(ctx context.Context, id string, req dto.TemplateRequest) (*models.Template, error) {
	result, _, err := call[*models.Template](ctx, c, http.MethodPut, "/templates/"+url.PathEscape(id), req, nil)
	return result, err
}

// DeleteTemplate removes a template.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	resp, err := c.http.R().SetContext(ctx).SetError(&errorEnvelope{}).Delete("/templates/" + url.PathEscape(id))
	if err != nil {
		return appErrors.Upstream(err, "certificate service unreachable")
	}
	return responseError(resp)
}

// Verify checks a certificate number. The endpoint needs no token.
func (c *Client) Verify(ctx context.Context, number string) (*dto.VerifyCertificateResponse, error) {
	result, _, err := call[dto.VerifyCertificateResponse](ctx, c, http.MethodGet, "/verify/"+url.PathEscape(number), nil, nil)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DownloadData fetches the certificate, template and QR data for rendering.
func (c *Client) DownloadData(ctx context.Context, id string) (*dto.DownloadDataResponse, error) {
	path := fmt.Sprintf("/certificates/%s/download-data", url.PathEscape(id))
	result, _, err := call[*dto.DownloadDataResponse](ctx, c, http.MethodGet, path, nil, nil)
	return result, err
}

// DownloadPDF fetches the server-rendered document and its file name.
func (c *Client) DownloadPDF(ctx context.Context, id string) ([]byte, string, error) {
	path := fmt.Sprintf("/certificates/%s/download", url.PathEscape(id))
	resp, err := c.http.R().SetContext(ctx).SetHeader("Accept", "application/pdf").SetError(&errorEnvelope{}).Get(path)
	if err != nil {
		return nil, "", appErrors.Upstream(err, "certificate service unreachable")
	}
	if err := responseError(resp); err != nil {
		return nil, "", err
	}
	filename := id + ".pdf"
	if _, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return resp.Body(), filename, nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body interface{}, query map[string]string) (T, *models.Pagination, error) {
	var out envelope[T]
	req := c.http.R().SetContext(ctx).SetResult(&out).SetError(&errorEnvelope{})
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		var zero T
		return zero, nil, appErrors.Upstream(err, "certificate service unreachable")
	}
	if err := responseError(resp); err != nil {
		var zero T
		return zero, nil, err
	}
	return out.Data, out.Pagination, nil
}

// responseError converts an error envelope into *appErrors.Error so callers can match on code.
func responseError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	if failed, ok := resp.Error().(*errorEnvelope); ok && failed.Error != nil {
		apiErr := *failed.Error
		if apiErr.Status == 0 {
			apiErr.Status = resp.StatusCode()
		}
		return &apiErr
	}
	return appErrors.New("HTTP_"+strconv.Itoa(resp.StatusCode()), resp.StatusCode(), strings.TrimSpace(resp.Status()))
}
