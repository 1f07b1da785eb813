package dto

// UpdateProfileRequest describes payload for a user editing their own
// profile.
type UpdateProfileRequest struct {
	FullName        *string `json:"full_name"`
	Phone           *string `json:"phone"`
	ProfileImageURL *string `json:"profile_image_url"`
}

// AdminUpdateUserRequest describes the admin-only user mutation payload.
type AdminUpdateUserRequest struct {
	FullName       *string   `json:"full_name"`
	Phone          *string   `json:"phone"`
	Active         *bool     `json:"active"`
	AccessTags     *[]string `json:"access_tags"`
	StudentClass   *string   `json:"student_class"`
	Program        *string   `json:"program"`
	Qualifications *[]string `json:"qualifications"`
	Experience     *int      `json:"experience"`
	Expertise      *[]string `json:"expertise"`
}

// UpdateAccessTagsRequest replaces a user's access tag set.
type UpdateAccessTagsRequest struct {
	AccessTags []string `json:"access_tags" validate:"required"`
}
