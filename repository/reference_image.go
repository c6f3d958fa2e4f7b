package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

type ReferenceImageRepository struct {
	db *gorm.DB
}

func NewReferenceImageRepository(db *gorm.DB) *ReferenceImageRepository {
	return &ReferenceImageRepository{db: db}
}

func (r *ReferenceImageRepository) Create(image *entity.ReferenceImage) error {
	return r.db.Create(image).Error
}

func (r *ReferenceImageRepository) FindByID(id uuid.UUID) (*entity.ReferenceImage, error) {
	var image entity.ReferenceImage
	err := r.db.Where("id = ?", id).First(&image).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *ReferenceImageRepository) FindByUserID(userID uuid.UUID) ([]entity.ReferenceImage, error) {
	var images []entity.ReferenceImage
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (r *ReferenceImageRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&entity.ReferenceImage{}, "id = ?", id).Error
}
