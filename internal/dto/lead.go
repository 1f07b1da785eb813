package dto

// ContactLeadRequest is the public contact-us form payload.
type ContactLeadRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message"`
}

// EnrollmentLeadRequest is the public enrollment form payload.
type EnrollmentLeadRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required"`
	StudentClass string `json:"student_class" validate:"required"`
	Program      string `json:"program" validate:"required"`
	Message      string `json:"message"`
}

// UpdateLeadStatusRequest moves a lead along the follow-up pipeline.
type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required,lead_status"`
}
