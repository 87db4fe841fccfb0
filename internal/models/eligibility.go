package models

// Certification thresholds, in percent.
const (
	MinClassProgressPercentage = 80.0
	MinOverallGrade            = 70.0
	MinFinalExamPercentage     = 70.0
)

// EligibilityChecks holds the outcome of each certification requirement.
type EligibilityChecks struct {
	ClassProgressOK         bool `json:"class_progress_ok"`
	OverallGradeOK          bool `json:"overall_grade_ok"`
	FinalExamPassed         bool `json:"final_exam_passed"`
	AllEvaluationsAttempted bool `json:"all_evaluations_attempted"`
}

// All reports whether every requirement passed.
func (c EligibilityChecks) All() bool {
	return c.ClassProgressOK && c.OverallGradeOK && c.FinalExamPassed && c.AllEvaluationsAttempted
}

// EvaluationBreakdown is the per-evaluation contribution to the overall grade.
type EvaluationBreakdown struct {
	EvaluationID   string   `json:"evaluation_id"`
	Title          string   `json:"title"`
	MaxPoints      float64  `json:"max_points"`
	Weight         float64  `json:"weight"`
	IsFinalExam    bool     `json:"is_final_exam"`
	Attempts       int      `json:"attempts"`
	BestScore      *float64 `json:"best_score"`
	BestPercentage *float64 `json:"best_percentage"`
}

// EligibilityResult is recomputed on every query and never persisted.
type EligibilityResult struct {
	StudentID               string                `json:"student_id"`
	CourseID                string                `json:"course_id"`
	IsEligible              bool                  `json:"is_eligible"`
	Checks                  EligibilityChecks     `json:"checks"`
	TotalClasses            int                   `json:"total_classes"`
	CompletedClasses        int                   `json:"completed_classes"`
	ClassProgressPercentage float64               `json:"class_progress_percentage"`
	OverallGrade            float64               `json:"overall_grade"`
	FinalExamScore          *float64              `json:"final_exam_score"`
	Evaluations             []EvaluationBreakdown `json:"evaluations"`
	ExistingCertificate     *Certificate          `json:"existing_certificate"`
}
