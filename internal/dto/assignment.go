package dto

// CreateAssignmentRequest describes payload for creating an assignment.
type CreateAssignmentRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject" validate:"required"`
	TargetClass string `json:"target_class" validate:"required"`
	TargetExam  string `json:"target_exam"`
	Difficulty  string `json:"difficulty"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	FileURL     string `json:"file_url"`
	IsPublished bool   `json:"is_published"`
}

// UpdateAssignmentRequest describes payload for editing an assignment. Nil
// fields are left untouched.
type UpdateAssignmentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Subject     *string `json:"subject"`
	TargetClass *string `json:"target_class"`
	TargetExam  *string `json:"target_exam"`
	Difficulty  *string `json:"difficulty"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	FileURL     *string `json:"file_url"`
	IsPublished *bool   `json:"is_published"`
}

// SubmitAssignmentRequest carries the student's answer file.
type SubmitAssignmentRequest struct {
	FileURL string `json:"file_url" validate:"required,url"`
}

// GradeSubmissionRequest records a grade in "obtained/max" form plus
// optional feedback.
type GradeSubmissionRequest struct {
	Grade    string `json:"grade" validate:"required"`
	Feedback string `json:"feedback"`
}
