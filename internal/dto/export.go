package dto

// CreateExportRequest queues an asynchronous export job.
type CreateExportRequest struct {
	Type   string `json:"type" validate:"required,oneof=leads performance"`
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}
