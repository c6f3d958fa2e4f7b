package controller

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/http/controller/dto"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/utils"
)

const (
	BookStatusDraft      = "draft"
	BookStatusInProgress = "in_progress"
	BookStatusReady      = "ready"
)

func (ctrl *Controller) CreateBook(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateBookRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.JSON400(c, "Invalid user_id format")
		return
	}
	if _, err := ctrl.Repository.UserRepo.FindByID(userID); err != nil {
		utils.JSON404(c, "User not found")
		return
	}

	book := &entity.Book{
		ID:         uuid.New(),
		UserID:     userID,
		Title:      req.Title,
		Dedication: req.Dedication,
		Status:     BookStatusDraft,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := ctrl.Repository.BookRepo.Create(book); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Book] Failed to create book: %v", err)
		utils.JSON500(c, "Failed to create book")
		return
	}

	utils.JSON201(c, book)
}

// GetBook returns the book with its pages in page order.
func (ctrl *Controller) GetBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid book id format")
		return
	}

	book, err := ctrl.Repository.BookRepo.FindByID(bookID)
	if err != nil {
		utils.JSON404(c, "Book not found")
		return
	}

	pages, err := ctrl.Repository.BookRepo.FindPagesByBookID(bookID)
	if err != nil {
		utils.JSON500(c, "Failed to load pages")
		return
	}

	utils.JSON200(c, gin.H{"book": book, "pages": pages})
}

func (ctrl *Controller) ListBooks(c *gin.Context) {
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			utils.JSON400(c, "Invalid user_id format")
			return
		}
		books, err := ctrl.Repository.BookRepo.FindByUserID(userID)
		if err != nil {
			utils.JSON500(c, "Failed to list books")
			return
		}
		utils.JSON200(c, gin.H{"books": books, "total": len(books)})
		return
	}

	var query dto.ListQueryDTO
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.JSON400(c, "Invalid query parameters")
		return
	}

	books, total, err := ctrl.Repository.BookRepo.List(query.Limit, query.Offset)
	if err != nil {
		utils.JSON500(c, "Failed to list books")
		return
	}

	utils.JSON200(c, gin.H{"books": books, "total": total})
}

func (ctrl *Controller) UpdateBook(c *gin.Context) {
	ctx := c.Request.Context()

	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid book id format")
		return
	}

	var req dto.UpdateBookRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	book, err := ctrl.Repository.BookRepo.FindByID(bookID)
	if err != nil {
		utils.JSON404(c, "Book not found")
		return
	}

	if req.Title != "" {
		book.Title = req.Title
	}
	if req.Dedication != "" {
		book.Dedication = req.Dedication
	}
	if req.Status != "" {
		switch req.Status {
		case BookStatusDraft, BookStatusInProgress, BookStatusReady:
			book.Status = req.Status
		default:
			utils.JSON400(c, "Unknown book status")
			return
		}
	}
	book.UpdatedAt = time.Now()

	if err := ctrl.Repository.BookRepo.Update(book); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Book] Failed to update book %s: %v", bookID, err)
		utils.JSON500(c, "Failed to update book")
		return
	}

	utils.JSON200(c, book)
}

func (ctrl *Controller) DeleteBook(c *gin.Context) {
	ctx := c.Request.Context()

	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid book id format")
		return
	}

	if _, err := ctrl.Repository.BookRepo.FindByID(bookID); err != nil {
		utils.JSON404(c, "Book not found")
		return
	}

	if err := ctrl.Repository.BookRepo.Delete(bookID); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Book] Failed to delete book %s: %v", bookID, err)
		utils.JSON500(c, "Failed to delete book")
		return
	}

	utils.JSON200(c, gin.H{"deleted": bookID})
}

func (ctrl *Controller) CreatePage(c *gin.Context) {
	ctx := c.Request.Context()

	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid book id format")
		return
	}
	if _, err := ctrl.Repository.BookRepo.FindByID(bookID); err != nil {
		utils.JSON404(c, "Book not found")
		return
	}

	var req dto.CreatePageRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	page := &entity.Page{
		ID:         uuid.New(),
		BookID:     bookID,
		PageNumber: req.PageNumber,
		Text:       req.Text,
		Prompt:     req.Prompt,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := ctrl.Repository.BookRepo.CreatePage(page); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Book] Failed to create page: %v", err)
		utils.JSON500(c, "Failed to create page")
		return
	}

	utils.JSON201(c, page)
}

func (ctrl *Controller) UpdatePage(c *gin.Context) {
	ctx := c.Request.Context()

	pageID, err := uuid.Parse(c.Param("page_id"))
	if err != nil {
		utils.JSON400(c, "Invalid page id format")
		return
	}

	var req dto.UpdatePageRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	page, err := ctrl.Repository.BookRepo.FindPageByID(pageID)
	if err != nil {
		utils.JSON404(c, "Page not found")
		return
	}

	if req.Text != "" {
		page.Text = req.Text
	}
	if req.Prompt != "" {
		page.Prompt = req.Prompt
	}
	page.UpdatedAt = time.Now()

	if err := ctrl.Repository.BookRepo.UpdatePage(page); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Book] Failed to update page %s: %v", pageID, err)
		utils.JSON500(c, "Failed to update page")
		return
	}

	utils.JSON200(c, page)
}

// SelectPageAsset records the operator's pick among a page's generated
// candidates. The key must be one of the candidates produced for the page.
func (ctrl *Controller) SelectPageAsset(c *gin.Context) {
	ctx := c.Request.Context()

	pageID, err := uuid.Parse(c.Param("page_id"))
	if err != nil {
		utils.JSON400(c, "Invalid page id format")
		return
	}

	var req dto.SelectPageAssetRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request payload")
		return
	}

	page, err := ctrl.Repository.BookRepo.FindPageByID(pageID)
	if err != nil {
		utils.JSON404(c, "Page not found")
		return
	}

	if !pageHasCandidate(page, req.ObjectKey) {
		utils.JSON400(c, "object_key is not a candidate for this page")
		return
	}

	if err := ctrl.Repository.BookRepo.SelectPageAsset(pageID, req.ObjectKey); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Book] Failed to select asset for page %s: %v", pageID, err)
		utils.JSON500(c, "Failed to select asset")
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Book] Page %s asset selected: %s", pageID, req.ObjectKey)
	utils.JSON200(c, gin.H{"page_id": pageID, "selected_asset": req.ObjectKey})
}

func pageHasCandidate(page *entity.Page, objectKey string) bool {
	var keys []string
	if len(page.Candidates) > 0 {
		_ = json.Unmarshal(page.Candidates, &keys)
	}
	for _, key := range keys {
		if key == objectKey {
			return true
		}
	}
	return false
}
