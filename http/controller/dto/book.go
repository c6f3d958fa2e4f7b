package dto

type CreateBookRequestDTO struct {
	UserID     string `json:"user_id" binding:"required,uuid"`
	Title      string `json:"title" binding:"required"`
	Dedication string `json:"dedication"`
}

type UpdateBookRequestDTO struct {
	Title      string `json:"title"`
	Dedication string `json:"dedication"`
	Status     string `json:"status"`
}

type CreatePageRequestDTO struct {
	PageNumber int    `json:"page_number" binding:"required,min=1"`
	Text       string `json:"text"`
	Prompt     string `json:"prompt"`
}

type UpdatePageRequestDTO struct {
	Text   string `json:"text"`
	Prompt string `json:"prompt"`
}

type SelectPageAssetRequestDTO struct {
	ObjectKey string `json:"object_key" binding:"required"`
}
