package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/examsphere/quiz-session-service/internal/models"
	"github.com/examsphere/quiz-session-service/internal/repositories"
)

type SubscriptionPostgreSQL struct {
	db *gorm.DB
}

func NewSubscriptionPostgreSQL(db *gorm.DB) repositories.SubscriptionRepository {
	return &SubscriptionPostgreSQL{db: db}
}

func (s *SubscriptionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *SubscriptionPostgreSQL) GetActiveByUser(ctx context.Context, tx *gorm.DB, userID string, subCategoryID *uint, now time.Time) (*models.Subscription, error) {
	db := s.getDB(tx)
	query := db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND starts_at <= ? AND (ends_at IS NULL OR ends_at >= ?)",
			userID, models.SubscriptionActive, now, now)
	if subCategoryID != nil {
		query = query.Where("(sub_category_id IS NULL OR sub_category_id = ?)", *subCategoryID)
	}

	var subscription models.Subscription
	if err := query.Order("starts_at DESC").First(&subscription).Error; err != nil {
		return nil, err
	}
	return &subscription, nil
}

// ===== WALLET =====

type WalletPostgreSQL struct {
	db *gorm.DB
}

func NewWalletPostgreSQL(db *gorm.DB) repositories.WalletRepository {
	return &WalletPostgreSQL{db: db}
}

func (w *WalletPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return w.db
}

func (w *WalletPostgreSQL) GetBalance(ctx context.Context, tx *gorm.DB, userID string) (int, error) {
	db := w.getDB(tx)
	var wallet models.Wallet
	if err := db.WithContext(ctx).First(&wallet, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil // No wallet row means empty balance
		}
		return 0, err
	}
	return wallet.Balance, nil
}

// Debit decrements the balance with a guard on the current value, so two
// concurrent starts cannot spend the same points twice. A zero-row update
// surfaces as gorm.ErrRecordNotFound, which callers map to insufficient funds.
func (w *WalletPostgreSQL) Debit(ctx context.Context, tx *gorm.DB, userID string, amount int, description string, sessionID *uint) error {
	db := w.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	transaction := &models.WalletTransaction{
		UserID:        userID,
		Type:          models.WalletDebit,
		Amount:        amount,
		Description:   description,
		QuizSessionID: sessionID,
	}
	return db.WithContext(ctx).Create(transaction).Error
}
