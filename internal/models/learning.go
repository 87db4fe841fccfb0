package models

// Course is the read-only course projection used for eligibility and certificate snapshots.
type Course struct {
	ID             string  `db:"id" json:"id"`
	Title          string  `db:"title" json:"title"`
	Category       string  `db:"category" json:"category"`
	Level          string  `db:"level" json:"level"`
	DurationHours  int     `db:"duration_hours" json:"duration_hours"`
	InstructorID   *string `db:"instructor_id" json:"instructor_id,omitempty"`
	InstructorName string  `db:"instructor_name" json:"instructor_name"`
}

// ClassProgress counts a student's completed classes in a course.
type ClassProgress struct {
	TotalClasses     int `db:"total_classes" json:"total_classes"`
	CompletedClasses int `db:"completed_classes" json:"completed_classes"`
}

// EvaluationSummary aggregates one student's attempts at one evaluation.
type EvaluationSummary struct {
	EvaluationID string   `db:"evaluation_id" json:"evaluation_id"`
	Title        string   `db:"title" json:"title"`
	MaxPoints    float64  `db:"max_points" json:"max_points"`
	Weight       float64  `db:"weight" json:"weight"`
	IsFinalExam  bool     `db:"is_final_exam" json:"is_final_exam"`
	Attempts     int      `db:"attempts" json:"attempts"`
	BestScore    *float64 `db:"best_score" json:"best_score,omitempty"`
}
