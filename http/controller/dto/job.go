package dto

// StartTrainingRequestDTO kicks off a fine-tuning run for a user, built
// from that user's uploaded reference photos.
type StartTrainingRequestDTO struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	TriggerWord string `json:"trigger_word"`
	Steps       int    `json:"steps"`
}

// StartStorybookRequestDTO kicks off a page generation run for a book page
// using the owner's trained model.
type StartStorybookRequestDTO struct {
	BookID        string `json:"book_id" binding:"required,uuid"`
	PageID        string `json:"page_id" binding:"required,uuid"`
	Prompt        string `json:"prompt" binding:"required"`
	NumCandidates int    `json:"num_candidates"`
}

// ListJobsQueryDTO filters the jobs listing.
type ListJobsQueryDTO struct {
	UserID string `form:"user_id"`
	BookID string `form:"book_id"`
	Kind   string `form:"kind"`
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}
