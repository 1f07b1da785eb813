package models

import "time"

// SubmissionStatus values stored on a submission row. Pending and Missing
// never hit the database; they are derived at read time when no row exists.
const (
	SubmissionStatusSubmitted = "Submitted"
	SubmissionStatusLate      = "Late"
	SubmissionStatusGraded    = "Graded"
	SubmissionStatusPending   = "Pending"
	SubmissionStatusMissing   = "Missing"
)

// Assignment represents homework published by a teacher to a tag-matched
// student audience.
type Assignment struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	Subject     string     `db:"subject" json:"subject"`
	TargetClass string     `db:"target_class" json:"target_class"`
	TargetExam  string     `db:"target_exam" json:"target_exam,omitempty"`
	Difficulty  string     `db:"difficulty" json:"difficulty,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
	FileURL     string     `db:"file_url" json:"file_url,omitempty"`
	TeacherID   string     `db:"teacher_id" json:"teacher_id"`
	TeacherName string     `db:"teacher_name" json:"teacher_name,omitempty"`
	IsPublished bool       `db:"is_published" json:"is_published"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// ContentTags returns the tag triple the access policy evaluates.
func (a *Assignment) ContentTags() []string {
	return []string{a.TargetClass, a.Subject, a.TargetExam}
}

// Published implements the access policy item contract.
func (a *Assignment) Published() bool {
	return a.IsPublished
}

// Submission is a student's answer to an assignment. At most one row exists
// per (assignment, student) pair; resubmission overwrites it.
type Submission struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	FileURL      string    `db:"file_url" json:"file_url"`
	Status       string    `db:"status" json:"status"`
	Grade        *string   `db:"grade" json:"grade,omitempty"`
	Feedback     *string   `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
}

// IsGraded reports whether the teacher has recorded a grade; graded
// submissions are terminal and may not be revoked.
func (s *Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}

// StudentAssignmentView decorates an assignment with the requesting
// student's submission state for the assignment list.
type StudentAssignmentView struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	Description       string  `json:"description,omitempty"`
	Subject           string  `json:"subject"`
	Teacher           string  `json:"teacher"`
	DueDate           string  `json:"due_date"`
	Status            string  `json:"status"`
	Difficulty        string  `json:"difficulty,omitempty"`
	QuestionFileURL   string  `json:"question_file_url,omitempty"`
	SubmissionFileURL *string `json:"submission_file_url,omitempty"`
	Score             *string `json:"score,omitempty"`
}

// SubmissionView is the teacher-facing row for reviewing submissions.
type SubmissionView struct {
	ID           string    `db:"id" json:"id"`
	StudentName  string    `db:"student_name" json:"student_name"`
	StudentEmail string    `db:"student_email" json:"student_email"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
	FileURL      string    `db:"file_url" json:"file_url"`
	Status       string    `db:"status" json:"status"`
	Grade        *string   `db:"grade" json:"grade,omitempty"`
	Feedback     *string   `db:"feedback" json:"feedback,omitempty"`
}
