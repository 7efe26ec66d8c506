package dto

const (
	FeedbackGeneral = "general"
	FeedbackBug     = "bug"
	FeedbackFeature = "feature"
	FeedbackOther   = "other"
)

type FeedbackRequest struct {
	FeedbackText string `json:"feedback_text" validate:"required,min=10,max=5000"`
	FeedbackType string `json:"feedback_type" validate:"oneof=general bug feature other"`
	Rating       *int   `json:"rating" validate:"omitempty,min=1,max=5"`
}
