package repository

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Create(book *entity.Book) error {
	return r.db.Create(book).Error
}

func (r *BookRepository) FindByID(id uuid.UUID) (*entity.Book, error) {
	var book entity.Book
	err := r.db.Where("id = ?", id).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *BookRepository) FindByUserID(userID uuid.UUID) ([]entity.Book, error) {
	var books []entity.Book
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *BookRepository) List(limit, offset int) ([]entity.Book, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var total int64
	if err := r.db.Model(&entity.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var books []entity.Book
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&books).Error
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *BookRepository) Update(book *entity.Book) error {
	return r.db.Save(book).Error
}

func (r *BookRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&entity.Book{}, "id = ?", id).Error
}

func (r *BookRepository) CreatePage(page *entity.Page) error {
	return r.db.Create(page).Error
}

func (r *BookRepository) FindPageByID(id uuid.UUID) (*entity.Page, error) {
	var page entity.Page
	err := r.db.Where("id = ?", id).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *BookRepository) FindPagesByBookID(bookID uuid.UUID) ([]entity.Page, error) {
	var pages []entity.Page
	err := r.db.Where("book_id = ?", bookID).Order("page_number ASC").Find(&pages).Error
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *BookRepository) UpdatePage(page *entity.Page) error {
	return r.db.Save(page).Error
}

// AppendPageCandidates merges freshly generated asset keys into the page's
// candidate set and returns the updated page.
func (r *BookRepository) AppendPageCandidates(id uuid.UUID, candidates datatypes.JSON) error {
	return r.db.Model(&entity.Page{}).
		Where("id = ?", id).
		Update("candidates", candidates).Error
}

// SelectPageAsset records the operator's chosen candidate for a page.
func (r *BookRepository) SelectPageAsset(id uuid.UUID, objectKey string) error {
	return r.db.Model(&entity.Page{}).
		Where("id = ?", id).
		Update("selected_asset", objectKey).Error
}
