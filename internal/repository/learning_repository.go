package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/edu-certificate-api/internal/models"
)

// LearningRepository reads the course progress and grading records eligibility is computed from.
type LearningRepository struct {
	db *sqlx.DB
}

// NewLearningRepository constructs the repository.
func NewLearningRepository(db *sqlx.DB) *LearningRepository {
	return &LearningRepository{db: db}
}

// FindStudent fetches a user by id.
func (r *LearningRepository) FindStudent(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, email, full_name, role, created_at FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindCourse fetches a course together with its instructor's display name.
func (r *LearningRepository) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT c.id, c.title, c.category, c.level, c.duration_hours, c.instructor_id,
COALESCE(u.full_name, '') AS instructor_name
FROM courses c
LEFT JOIN users u ON u.id = c.instructor_id
WHERE c.id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ClassProgress counts the course's classes and how many the student completed.
func (r *LearningRepository) ClassProgress(ctx context.Context, studentID, courseID string) (*models.ClassProgress, error) {
	const query = `SELECT COUNT(cc.id) AS total_classes, COUNT(comp.class_id) AS completed_classes
FROM course_classes cc
LEFT JOIN class_completions comp ON comp.class_id = cc.id AND comp.student_id = $1
WHERE cc.course_id = $2`
	var progress models.ClassProgress
	if err := r.db.GetContext(ctx, &progress, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("class progress: %w", err)
	}
	return &progress, nil
}

// EvaluationSummaries lists every evaluation of the course with the student's attempt count and best score.
func (r *LearningRepository) EvaluationSummaries(ctx context.Context, studentID, courseID string) ([]models.EvaluationSummary, error) {
	const query = `SELECT e.id AS evaluation_id, e.title, e.max_points, e.weight, e.is_final_exam,
COUNT(a.id) AS attempts, MAX(a.score) AS best_score
FROM evaluations e
LEFT JOIN evaluation_attempts a ON a.evaluation_id = e.id AND a.student_id = $1
WHERE e.course_id = $2
GROUP BY e.id, e.title, e.max_points, e.weight, e.is_final_exam
ORDER BY e.is_final_exam ASC, e.title ASC`
	var summaries []models.EvaluationSummary
	if err := r.db.SelectContext(ctx, &summaries, query, studentID, courseID); err != nil {
		return nil, fmt.Errorf("evaluation summaries: %w", err)
	}
	return summaries, nil
}
