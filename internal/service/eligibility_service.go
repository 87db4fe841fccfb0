package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/edu-certificate-api/internal/models"
	appErrors "github.com/noah-isme/edu-certificate-api/pkg/errors"
)

type learningReader interface {
	FindStudent(ctx context.Context, id string) (*models.User, error)
	FindCourse(ctx context.Context, id string) (*models.Course, error)
	ClassProgress(ctx context.Context, studentID, courseID string) (*models.ClassProgress, error)
	EvaluationSummaries(ctx context.Context, studentID, courseID string) ([]models.EvaluationSummary, error)
}

type outstandingCertificateReader interface {
	FindOutstanding(ctx context.Context, studentID, courseID string) (*models.Certificate, error)
}

// EligibilityService evaluates certification requirements for a student and course. It never writes.
type EligibilityService struct {
	learning     learningReader
	certificates outstandingCertificateReader
	logger       *zap.Logger
}

// NewEligibilityService constructs the evaluator.
func NewEligibilityService(learning learningReader, certificates outstandingCertificateReader, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{learning: learning, certificates: certificates, logger: logger}
}

// Evaluate computes the eligibility result. Ineligibility is a normal result, not an error.
func (s *EligibilityService) Evaluate(ctx context.Context, studentID, courseID string) (*models.EligibilityResult, error) {
	studentID = strings.TrimSpace(studentID)
	courseID = strings.TrimSpace(courseID)
	if studentID == "" || courseID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId and courseId are required")
	}

	if _, err := s.learning.FindStudent(ctx, studentID); err != nil {
		return nil, s.lookupError(err, "student not found", "failed to load student")
	}
	if _, err := s.learning.FindCourse(ctx, courseID); err != nil {
		return nil, s.lookupError(err, "course not found", "failed to load course")
	}

	progress, err := s.learning.ClassProgress(ctx, studentID, courseID)
	if err != nil {
		return nil, s.lookupError(err, "", "failed to load class progress")
	}
	evaluations, err := s.learning.EvaluationSummaries(ctx, studentID, courseID)
	if err != nil {
		return nil, s.lookupError(err, "", "failed to load evaluations")
	}

	result := computeEligibility(*progress, evaluations)
	result.StudentID = studentID
	result.CourseID = courseID

	existing, err := s.certificates.FindOutstanding(ctx, studentID, courseID)
	switch {
	case err == nil:
		result.ExistingCertificate = existing
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, s.lookupError(err, "", "failed to load existing certificate")
	}
	return result, nil
}

func (s *EligibilityService) lookupError(err error, notFoundMsg, upstreamMsg string) error {
	if notFoundMsg != "" && errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	s.logger.Error(upstreamMsg, zap.Error(err))
	return appErrors.Upstream(err, upstreamMsg)
}

// computeEligibility is the pure rule set over already-loaded learning records.
func computeEligibility(progress models.ClassProgress, evaluations []models.EvaluationSummary) *models.EligibilityResult {
	result := &models.EligibilityResult{
		TotalClasses:     progress.TotalClasses,
		CompletedClasses: progress.CompletedClasses,
		Evaluations:      make([]models.EvaluationBreakdown, 0, len(evaluations)),
	}

	// A course without classes has nothing left to attend.
	progressPct := 100.0
	if progress.TotalClasses > 0 {
		progressPct = float64(progress.CompletedClasses*100) / float64(progress.TotalClasses)
	}
	result.ClassProgressPercentage = round2(progressPct)

	// Thresholds are checked against raw values; the result carries rounded ones.
	var (
		weighted     float64
		totalWeight  float64
		finalExamPct *float64
		allAttempted = true
	)
	for _, ev := range evaluations {
		row := models.EvaluationBreakdown{
			EvaluationID: ev.EvaluationID,
			Title:        ev.Title,
			MaxPoints:    ev.MaxPoints,
			Weight:       ev.Weight,
			IsFinalExam:  ev.IsFinalExam,
			Attempts:     ev.Attempts,
			BestScore:    ev.BestScore,
		}
		var pct float64
		if ev.Attempts > 0 && ev.BestScore != nil {
			pct = percentage(*ev.BestScore, ev.MaxPoints)
			shown := round2(pct)
			row.BestPercentage = &shown
		} else {
			allAttempted = false
		}
		if ev.Weight > 0 {
			weighted += pct * ev.Weight
			totalWeight += ev.Weight
		}
		if ev.IsFinalExam && row.BestPercentage != nil {
			if finalExamPct == nil || pct > *finalExamPct {
				raw, shown := pct, round2(pct)
				finalExamPct = &raw
				result.FinalExamScore = &shown
			}
		}
		result.Evaluations = append(result.Evaluations, row)
	}
	var overallGrade float64
	if totalWeight > 0 {
		overallGrade = weighted / totalWeight
	}
	result.OverallGrade = round2(overallGrade)

	result.Checks = decideEligibility(progressPct, overallGrade, finalExamPct, allAttempted)
	result.IsEligible = result.Checks.All()
	return result
}

// decideEligibility applies the fixed thresholds; boundaries are inclusive.
func decideEligibility(progressPct, overallGrade float64, finalExam *float64, allAttempted bool) models.EligibilityChecks {
	return models.EligibilityChecks{
		ClassProgressOK:         progressPct >= models.MinClassProgressPercentage,
		OverallGradeOK:          overallGrade >= models.MinOverallGrade,
		FinalExamPassed:         finalExam != nil && *finalExam >= models.MinFinalExamPercentage,
		AllEvaluationsAttempted: allAttempted,
	}
}

func percentage(score, maxPoints float64) float64 {
	if maxPoints <= 0 {
		return 0
	}
	return score * 100 / maxPoints
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
