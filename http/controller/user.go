package controller

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/http/controller/dto"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/utils"
)

func (ctrl *Controller) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateUserRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	user := &entity.User{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := ctrl.Repository.UserRepo.Create(user); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[User] Failed to create user: %v", err)
		utils.JSON500(c, "Failed to create user")
		return
	}

	utils.JSON201(c, user)
}

func (ctrl *Controller) GetUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid user id format")
		return
	}

	user, err := ctrl.Repository.UserRepo.FindByID(userID)
	if err != nil {
		utils.JSON404(c, "User not found")
		return
	}

	utils.JSON200(c, user)
}

func (ctrl *Controller) ListUsers(c *gin.Context) {
	var query dto.ListQueryDTO
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.JSON400(c, "Invalid query parameters")
		return
	}

	users, total, err := ctrl.Repository.UserRepo.List(query.Limit, query.Offset)
	if err != nil {
		utils.JSON500(c, "Failed to list users")
		return
	}

	utils.JSON200(c, gin.H{"users": users, "total": total})
}

func (ctrl *Controller) UpdateUser(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid user id format")
		return
	}

	var req dto.UpdateUserRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	user, err := ctrl.Repository.UserRepo.FindByID(userID)
	if err != nil {
		utils.JSON404(c, "User not found")
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	user.UpdatedAt = time.Now()

	if err := ctrl.Repository.UserRepo.Update(user); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[User] Failed to update user %s: %v", userID, err)
		utils.JSON500(c, "Failed to update user")
		return
	}

	utils.JSON200(c, user)
}

func (ctrl *Controller) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid user id format")
		return
	}

	if _, err := ctrl.Repository.UserRepo.FindByID(userID); err != nil {
		utils.JSON404(c, "User not found")
		return
	}

	if err := ctrl.Repository.UserRepo.Delete(userID); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[User] Failed to delete user %s: %v", userID, err)
		utils.JSON500(c, "Failed to delete user")
		return
	}

	utils.JSON200(c, gin.H{"deleted": userID})
}
