package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/events"
	"budgetbook/internal/models"
)

// shareService manages which users can see and edit a budget.
type shareService struct {
	db     *gorm.DB
	events events.Emitter
}

// NewShareService creates a new ShareServicer.
func NewShareService(db *gorm.DB, emitter events.Emitter) ShareServicer {
	return &shareService{db: db, events: emitter}
}

const memberColumns = "users.id AS user_id, users.email, users.first_name, users.last_name, users_budgets.created_at AS shared_at"

// ListMembers returns the members of a budget ordered by email.
func (s *shareService) ListMembers(ctx context.Context, userID, budgetID string) ([]Member, error) {
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return nil, err
	}

	members := []Member{}
	err := s.db.WithContext(ctx).
		Table("users_budgets").
		Select(memberColumns).
		Joins("JOIN users ON users.id = users_budgets.user_id AND users.deleted_at IS NULL").
		Where("users_budgets.budget_id = ?", budgetID).
		Order("users.email ASC").
		Scan(&members).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}

func (s *shareService) findUser(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required")
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// AddMember shares a budget with an existing user.
func (s *shareService) AddMember(ctx context.Context, userID, budgetID, email string) (*Member, error) {
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return nil, err
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return nil, err
	}

	share := &models.BudgetShare{BudgetID: budgetID, UserID: user.ID}
	if err := s.db.WithContext(ctx).Create(share).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrAlreadyMember
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.events.Emit(events.New(events.ShareAdded, userID, budgetID))
	return &Member{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		SharedAt:  share.CreatedAt,
	}, nil
}

// RemoveMember revokes a user's access to a budget. A budget always keeps
// at least one member.
func (s *shareService) RemoveMember(ctx context.Context, userID, budgetID, email string) error {
	if _, err := requireAccess(ctx, s.db, userID, budgetID); err != nil {
		return err
	}
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.BudgetShare{}).Where("budget_id = ?", budgetID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		result := tx.Where("budget_id = ? AND user_id = ?", budgetID, user.ID).Delete(&models.BudgetShare{})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.WithMessage(apperrors.ErrNotFound, "User is not a member of this budget")
		}
		if count <= 1 {
			return apperrors.ErrLastBudgetMember
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.events.Emit(events.New(events.ShareRemoved, userID, budgetID))
	return nil
}
