package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"budgetbook/internal/allocation"
	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/events"
	"budgetbook/internal/models"
	"budgetbook/internal/money"
	"budgetbook/internal/pagination"
	"budgetbook/internal/uuid"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db     *gorm.DB
	events events.Emitter
	now    func() time.Time
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, emitter events.Emitter) TransactionServicer {
	return &transactionService{db: db, events: emitter, now: time.Now}
}

func validateTransactionInput(input TransactionInput) (TransactionInput, error) {
	input.Description = strings.TrimSpace(input.Description)
	if input.Description == "" {
		return input, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	if utf8.RuneCountInString(input.Description) > models.MaxDescriptionLength {
		return input, apperrors.WithMessage(apperrors.ErrInvalidInput, "description must be at most 500 characters")
	}
	if input.Amount <= 0 {
		return input, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	return input, nil
}

// CreateTransaction records a credit or debit against a budget.
func (s *transactionService) CreateTransaction(ctx context.Context, userID, budgetID string, input TransactionInput) (*models.Transaction, error) {
	input, err := validateTransactionInput(input)
	if err != nil {
		return nil, err
	}
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return nil, err
	}

	author := userID
	txn := &models.Transaction{
		BudgetID:    budgetID,
		UserID:      &author,
		Description: input.Description,
		Amount:      input.Amount,
		Credit:      input.Credit,
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.events.Emit(events.New(events.TransactionCreated, userID, budgetID).WithTransactions(txn.ID))
	return txn, nil
}

// insertPosting writes a planned posting as a transaction. A nil author marks
// a transaction the system created on nobody's behalf.
func insertPosting(db *gorm.DB, posting allocation.Posting, author *string) (*models.Transaction, error) {
	txn := &models.Transaction{
		BudgetID:    posting.BudgetID,
		UserID:      author,
		Description: posting.Description,
		Amount:      posting.Amount,
		Credit:      posting.Credit,
	}
	if err := db.Create(txn).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txn, nil
}

// GetTransaction returns one transaction of a budget.
func (s *transactionService) GetTransaction(ctx context.Context, userID, budgetID, transactionID string) (*models.Transaction, error) {
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return nil, err
	}
	return s.findTransaction(ctx, budgetID, transactionID)
}

func (s *transactionService) findTransaction(ctx context.Context, budgetID, transactionID string) (*models.Transaction, error) {
	if !uuid.IsValid(transactionID) {
		return nil, apperrors.ErrTransactionNotFound
	}
	var txn models.Transaction
	err := s.db.WithContext(ctx).
		Where("id = ? AND budget_id = ?", transactionID, budgetID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// ListTransactions returns a budget's transactions, newest first.
func (s *transactionService) ListTransactions(
	ctx context.Context,
	userID, budgetID string,
	page pagination.PageRequest,
	filter TransactionFilter,
) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("budget_id = ?", budgetID)
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		if amount, err := money.Parse(q); err == nil && amount > 0 {
			base = base.Where("(LOWER(description) LIKE ? OR amount = ?)", like, amount)
		} else {
			base = base.Where("LOWER(description) LIKE ?", like)
		}
	}
	if filter.WindowDays > 0 {
		since := s.now().Add(-time.Duration(filter.WindowDays) * 24 * time.Hour)
		base = base.Where("created_at > ?", since)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txns []models.Transaction
	if err := base.Order("created_at DESC, id DESC").Scopes(pagination.Paginate(page)).Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txns, page, totalItems)
	return &result, nil
}

// UpdateTransaction changes the description, direction and amount of a
// transaction. The creation time and author never change.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, budgetID, transactionID string, input TransactionInput) (*models.Transaction, error) {
	input, err := validateTransactionInput(input)
	if err != nil {
		return nil, err
	}
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return nil, err
	}
	txn, err := s.findTransaction(ctx, budgetID, transactionID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(txn).Updates(map[string]interface{}{
		"description": input.Description,
		"credit":      input.Credit,
		"amount":      input.Amount,
	}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.events.Emit(events.New(events.TransactionUpdated, userID, budgetID).WithTransactions(txn.ID))
	return txn, nil
}

// DeleteTransaction removes a transaction from a budget.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, budgetID, transactionID string) error {
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return err
	}
	txn, err := s.findTransaction(ctx, budgetID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(txn).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.events.Emit(events.New(events.TransactionDeleted, userID, budgetID).WithTransactions(txn.ID))
	return nil
}
