package controller

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/utils"
)

// maxPhotoSize caps a single reference photo upload at 20 MiB.
const maxPhotoSize = 20 << 20

const presignedURLExpiry = 15 * time.Minute

// UploadReferencePhoto stores one reference photo for a user: the object
// goes to MinIO under the user's prefix, the metadata row to Postgres.
func (ctrl *Controller) UploadReferencePhoto(c *gin.Context) {
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

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		utils.JSON400(c, "Missing photo file in form data")
		return
	}
	if fileHeader.Size > maxPhotoSize {
		utils.JSON400(c, "Photo exceeds the 20MB size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.JSON500(c, "Failed to open uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	objectKey, err := ctrl.Infra.Minio.PutPhoto(ctx, userID.String(), fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] Failed to store photo for user %s: %v", userID, err)
		utils.JSON500(c, "Failed to store photo")
		return
	}

	image := &entity.ReferenceImage{
		ID:          uuid.New(),
		UserID:      userID,
		ObjectKey:   objectKey,
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
		CreatedAt:   time.Now(),
	}
	if err := ctrl.Repository.ReferenceImageRepo.Create(image); err != nil {
		// Keep storage and metadata consistent if the row insert fails.
		if removeErr := ctrl.Infra.Minio.RemovePhoto(ctx, objectKey); removeErr != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, removeErr, "[Upload] Orphaned object %s after failed insert: %v", objectKey, removeErr)
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] Failed to record photo metadata: %v", err)
		utils.JSON500(c, "Failed to record photo")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Upload] Photo %s stored for user %s", objectKey, userID)
	utils.JSON201(c, image)
}

// ListReferencePhotos returns a user's reference photos with short-lived
// presigned URLs for the admin UI to render.
func (ctrl *Controller) ListReferencePhotos(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid user id format")
		return
	}

	photos, err := ctrl.Repository.ReferenceImageRepo.FindByUserID(userID)
	if err != nil {
		utils.JSON500(c, "Failed to list photos")
		return
	}

	type photoWithURL struct {
		entity.ReferenceImage
		URL string `json:"url"`
	}
	result := make([]photoWithURL, 0, len(photos))
	for _, photo := range photos {
		url, err := ctrl.Infra.Minio.PresignedPhotoURL(ctx, photo.ObjectKey, presignedURLExpiry)
		if err != nil {
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] Failed to presign %s: %v", photo.ObjectKey, err)
			utils.JSON500(c, "Failed to presign photo URL")
			return
		}
		result = append(result, photoWithURL{ReferenceImage: photo, URL: url})
	}

	utils.JSON200(c, gin.H{"photos": result, "total": len(result)})
}

// DeleteReferencePhoto removes the object and its metadata row.
func (ctrl *Controller) DeleteReferencePhoto(c *gin.Context) {
	ctx := c.Request.Context()

	photoID, err := uuid.Parse(c.Param("photo_id"))
	if err != nil {
		utils.JSON400(c, "Invalid photo id format")
		return
	}

	photo, err := ctrl.Repository.ReferenceImageRepo.FindByID(photoID)
	if err != nil {
		utils.JSON404(c, "Photo not found")
		return
	}

	if err := ctrl.Infra.Minio.RemovePhoto(ctx, photo.ObjectKey); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] Failed to remove object %s: %v", photo.ObjectKey, err)
		utils.JSON500(c, "Failed to remove photo from storage")
		return
	}
	if err := ctrl.Repository.ReferenceImageRepo.Delete(photoID); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Upload] Failed to delete photo row %s: %v", photoID, err)
		utils.JSON500(c, "Failed to delete photo record")
		return
	}

	utils.JSON200(c, gin.H{"deleted": photoID})
}
