package dto

type CreateUserRequestDTO struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

type UpdateUserRequestDTO struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"omitempty,email"`
}

type ListQueryDTO struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}
