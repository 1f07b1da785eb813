package dto

// CreateDoubtRequest describes a student's question about an assignment or
// resource.
type CreateDoubtRequest struct {
	ContextType string `json:"context_type" validate:"required,doubt_context"`
	ContextID   string `json:"context_id" validate:"required,uuid"`
	Question    string `json:"question" validate:"required"`
}

// AnswerDoubtRequest carries the teacher's reply.
type AnswerDoubtRequest struct {
	Answer string `json:"answer" validate:"required"`
}
