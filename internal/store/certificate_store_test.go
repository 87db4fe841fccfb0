package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edu-certificate-api/internal/dto"
	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

type fakeBackend struct {
	mu          sync.Mutex
	student     map[string][]models.Certificate
	course      []models.Certificate
	templates   []models.Template
	generated   *models.Certificate
	revokeCalls int
	err         error
	// gate blocks StudentCertificates for the named student until closed.
	gate map[string]chan struct{}
	// revokeGate blocks Revoke for the named certificate until closed.
	revokeGate map[string]chan struct{}
}

func (f *fakeBackend) failure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeBackend) Eligibility(context.Context, string, string) (*models.EligibilityResult, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return &models.EligibilityResult{IsEligible: true}, nil
}

func (f *fakeBackend) Generate(_ context.Context, req dto.GenerateCertificateRequest) (*dto.CertificateResult, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return &dto.CertificateResult{Success: true, Created: true, Certificate: f.generated}, nil
}

func (f *fakeBackend) Issue(_ context.Context, req dto.IssueCertificateRequest) (*dto.CertificateResult, error) {
	return f.Generate(context.Background(), dto.GenerateCertificateRequest{})
}

func (f *fakeBackend) Revoke(_ context.Context, id, _ string) (*models.Certificate, error) {
	if gate, ok := f.revokeGate[id]; ok {
		<-gate
	}
	f.mu.Lock()
	f.revokeCalls++
	f.mu.Unlock()
	return nil, f.failure()
}

func (f *fakeBackend) StudentCertificates(_ context.Context, studentID string) ([]models.Certificate, error) {
	if gate, ok := f.gate[studentID]; ok {
		<-gate
	}
	if err := f.failure(); err != nil {
		return nil, err
	}
	return f.student[studentID], nil
}

func (f *fakeBackend) CourseCertificates(context.Context, string, int, int) ([]models.Certificate, *models.Pagination, error) {
	if err := f.failure(); err != nil {
		return nil, nil, err
	}
	return f.course, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(f.course)}, nil
}

func (f *fakeBackend) Stats(context.Context, models.StatsFilter) (*models.CertificateStats, error) {
	return &models.CertificateStats{TotalCertificates: 2}, f.failure()
}

func (f *fakeBackend) Templates(context.Context) ([]models.Template, error) {
	if err := f.failure(); err != nil {
		return nil, err
	}
	return f.templates, nil
}

func (f *fakeBackend) CreateTemplate(_ context.Context, req dto.TemplateRequest) (*models.Template, error) {
	return &models.Template{ID: "tpl-new", Name: req.Name}, f.failure()
}

func (f *fakeBackend) UpdateTemplate(_ context.Context, id string, req dto.TemplateRequest) (*models.Template, error) {
	return &models.Template{ID: id, Name: req.Name}, f.failure()
}

func (f *fakeBackend) DeleteTemplate(context.Context, string) error {
	return f.failure()
}

func (f *fakeBackend) Verify(_ context.Context, number string) (*dto.VerifyCertificateResponse, error) {
	return &dto.VerifyCertificateResponse{Valid: false, Error: "certificate not found"}, f.failure()
}

func (f *fakeBackend) DownloadData(_ context.Context, id string) (*dto.DownloadDataResponse, error) {
	return &dto.DownloadDataResponse{Certificate: &models.Certificate{ID: id}}, f.failure()
}

func issued(id, student, course string) models.Certificate {
	return models.Certificate{ID: id, StudentID: student, CourseID: course, Status: models.CertificateStatusIssued}
}

func TestStoreRevokeUpdatesAllCollections(t *testing.T) {
	backend := &fakeBackend{
		student: map[string][]models.Certificate{"stu-1": {issued("c1", "stu-1", "course-1")}},
		course:  []models.Certificate{issued("c1", "stu-1", "course-1"), issued("c2", "stu-2", "course-1")},
	}
	s := New(backend, nil)
	ctx := context.Background()

	_, err := s.LoadMyCertificates(ctx, "stu-1")
	require.NoError(t, err)
	_, err = s.LoadCourseCertificates(ctx, "course-1", 1, 20)
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, "c1", "  duplicate enrollment "))

	mine := s.MyCertificates()
	require.Len(t, mine, 1)
	assert.Equal(t, models.CertificateStatusRevoked, mine[0].Status)
	assert.Equal(t, "duplicate enrollment", mine[0].Metadata[models.MetadataReason])
	assert.NotNil(t, mine[0].RevokedAt)

	page := s.CourseCertificates()
	assert.Equal(t, models.CertificateStatusRevoked, page.Certificates[0].Status)
	assert.Equal(t, models.CertificateStatusIssued, page.Certificates[1].Status)
	assert.Equal(t, OpState{}, s.State(OpRevoke))
}

func TestStoreRevokeRequiresReason(t *testing.T) {
	backend := &fakeBackend{}
	s := New(backend, nil)

	err := s.Revoke(context.Background(), "c1", "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, 0, backend.revokeCalls)
	assert.NotEmpty(t, s.State(OpRevoke).Error)
	assert.False(t, s.State(OpRevoke).Loading)
}

func TestStoreFailureKeepsPriorData(t *testing.T) {
	backend := &fakeBackend{student: map[string][]models.Certificate{"stu-1": {issued("c1", "stu-1", "course-1")}}}
	s := New(backend, nil)
	ctx := context.Background()

	_, err := s.LoadMyCertificates(ctx, "stu-1")
	require.NoError(t, err)

	backend.err = appErrors.Upstream(errors.New("dial tcp"), "certificate service unreachable")
	_, err = s.LoadMyCertificates(ctx, "stu-1")
	require.Error(t, err)

	state := s.State(OpMyCertificates)
	assert.False(t, state.Loading)
	assert.Equal(t, "certificate service unreachable", state.Error)
	assert.Len(t, s.MyCertificates(), 1)

	backend.err = errors.New("boom")
	_, err = s.LoadStats(ctx, models.StatsFilter{})
	require.Error(t, err)
	assert.Equal(t, "something went wrong, please try again", s.State(OpStats).Error)
	assert.Nil(t, s.Stats())
}

func TestStoreDiscardsStaleResponses(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{
		student: map[string][]models.Certificate{
			"slow": {issued("old", "slow", "course-1")},
			"fast": {issued("new", "fast", "course-1")},
		},
		gate: map[string]chan struct{}{"slow": gate},
	}
	s := New(backend, nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.LoadMyCertificates(ctx, "slow")
	}()
	require.Eventually(t, func() bool { return s.State(OpMyCertificates).Loading }, timeout, tick)

	_, err := s.LoadMyCertificates(ctx, "fast")
	require.NoError(t, err)
	close(gate)
	<-done

	mine := s.MyCertificates()
	require.Len(t, mine, 1)
	assert.Equal(t, "new", mine[0].ID)
	assert.False(t, s.State(OpMyCertificates).Loading)
}

func TestStoreOverlappingRevokesBothApply(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{
		student: map[string][]models.Certificate{
			"stu-1": {issued("a", "stu-1", "course-1"), issued("b", "stu-1", "course-1")},
		},
		revokeGate: map[string]chan struct{}{"a": gate},
	}
	s := New(backend, nil)
	ctx := context.Background()
	_, err := s.LoadMyCertificates(ctx, "stu-1")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Revoke(ctx, "a", "duplicate enrollment") }()
	require.Eventually(t, func() bool { return s.State(OpRevoke).Loading }, timeout, tick)

	require.NoError(t, s.Revoke(ctx, "b", "wrong course"))
	close(gate)
	require.NoError(t, <-done)

	for _, cert := range s.MyCertificates() {
		assert.Equal(t, models.CertificateStatusRevoked, cert.Status, cert.ID)
	}
	assert.False(t, s.State(OpRevoke).Loading)
}

func TestStoreGenerateMergesIntoLoadedCollections(t *testing.T) {
	created := issued("c9", "stu-1", "course-1")
	backend := &fakeBackend{
		student:   map[string][]models.Certificate{"stu-1": {issued("c1", "stu-1", "course-0")}},
		course:    []models.Certificate{issued("c2", "stu-2", "course-1")},
		generated: &created,
	}
	s := New(backend, nil)
	ctx := context.Background()
	_, _ = s.LoadMyCertificates(ctx, "stu-1")
	_, _ = s.LoadCourseCertificates(ctx, "course-1", 1, 20)

	_, err := s.Generate(ctx, dto.GenerateCertificateRequest{StudentID: "stu-1", CourseID: "course-1", Automatic: true})
	require.NoError(t, err)

	assert.Equal(t, "c9", s.MyCertificates()[0].ID)
	page := s.CourseCertificates()
	assert.Len(t, page.Certificates, 2)
	assert.Equal(t, 2, page.Pagination.TotalCount)

	_, err = s.Generate(ctx, dto.GenerateCertificateRequest{StudentID: "stu-1", CourseID: "course-1"})
	require.NoError(t, err)
	assert.Len(t, s.MyCertificates(), 2)
}

func TestStoreTemplatesCacheThenFetch(t *testing.T) {
	backend := &fakeBackend{templates: []models.Template{{ID: "tpl-1", Name: "Classic"}}}
	s := New(backend, nil)
	ctx := context.Background()

	templates, err := s.LoadTemplates(ctx, false)
	require.NoError(t, err)
	assert.Len(t, templates, 1)

	backend.templates = append(backend.templates, models.Template{ID: "tpl-2"})
	templates, err = s.LoadTemplates(ctx, false)
	require.NoError(t, err)
	assert.Len(t, templates, 1)

	_, err = s.SaveTemplate(ctx, "", dto.TemplateRequest{Name: "Modern"})
	require.NoError(t, err)
	_, err = s.SaveTemplate(ctx, "tpl-1", dto.TemplateRequest{Name: "Classic v2"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteTemplate(ctx, "tpl-new"))

	cached := s.Templates()
	require.Len(t, cached, 1)
	assert.Equal(t, "Classic v2", cached[0].Name)

	templates, err = s.LoadTemplates(ctx, true)
	require.NoError(t, err)
	assert.Len(t, templates, 2)
}

func TestStoreVerifyAndEligibility(t *testing.T) {
	s := New(&fakeBackend{}, nil)
	ctx := context.Background()

	result, err := s.Verify(ctx, "BOGUS-000-000")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, OpState{}, s.State(OpVerify))

	eligibility, err := s.CheckEligibility(ctx, "stu-1", "course-1")
	require.NoError(t, err)
	assert.Same(t, eligibility, s.Eligibility())

	data, err := s.DownloadData(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", data.Certificate.ID)
}

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)
