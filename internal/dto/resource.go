package dto

// CreateResourceRequest describes payload for uploading a study resource.
type CreateResourceRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Type        string `json:"type" validate:"required,resource_type"`
	Subject     string `json:"subject" validate:"required"`
	TargetClass int    `json:"target_class" validate:"required,min=1,max=12"`
	Exam        string `json:"exam"`
	FileURL     string `json:"file_url"`
	IsPublished bool   `json:"is_published"`
}

// UpdateResourceRequest describes payload for editing a resource. Nil
// fields are left untouched.
type UpdateResourceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type" validate:"omitempty,resource_type"`
	Subject     *string `json:"subject"`
	TargetClass *int    `json:"target_class" validate:"omitempty,min=1,max=12"`
	Exam        *string `json:"exam"`
	FileURL     *string `json:"file_url"`
	IsPublished *bool   `json:"is_published"`
}
