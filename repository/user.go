package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *entity.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) FindByID(id uuid.UUID) (*entity.User, error) {
	var user entity.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) List(limit, offset int) ([]entity.User, int64, error) {
	var total int64
	if err := r.db.Model(&entity.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var users []entity.User
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) Update(user *entity.User) error {
	return r.db.Save(user).Error
}

// SetTrainedModel records the provider model version a succeeded training
// run produced for this user.
func (r *UserRepository) SetTrainedModel(id uuid.UUID, modelVersion string) error {
	return r.db.Model(&entity.User{}).
		Where("id = ?", id).
		Update("trained_model_id", modelVersion).Error
}

func (r *UserRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&entity.User{}, "id = ?", id).Error
}
