package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"-"`

	// Profile info
	AvatarURL *string `json:"avatar_url" gorm:"size:500"`

	EmailVerified bool `json:"email_verified" gorm:"default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionExpired  SubscriptionStatus = "expired"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription grants unrestricted access to paid quizzes while active.
type Subscription struct {
	ID     uint               `json:"id" gorm:"primaryKey"`
	UserID string             `json:"user_id" gorm:"not null;index;size:255"`
	PlanID uint               `json:"plan_id" gorm:"not null;index"`
	Status SubscriptionStatus `json:"status" gorm:"not null;default:active;index"`

	// SubCategoryID scopes the plan to one quiz category. nil is an
	// all-access plan covering every category.
	SubCategoryID *uint `json:"sub_category_id" gorm:"index"`

	StartsAt time.Time  `json:"starts_at" gorm:"not null"`
	EndsAt   *time.Time `json:"ends_at"` // nil means no fixed end

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

// IsActiveNow reports whether the subscription currently covers access.
func (s *Subscription) IsActiveNow(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	if now.Before(s.StartsAt) {
		return false
	}
	if s.EndsAt != nil && now.After(*s.EndsAt) {
		return false
	}
	return true
}

// Wallet holds the user's point balance for redeeming paid quizzes.
type Wallet struct {
	UserID  string `json:"user_id" gorm:"primaryKey;size:255"`
	Balance int    `json:"balance" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WalletTransactionType string

const (
	WalletDebit  WalletTransactionType = "debit"
	WalletCredit WalletTransactionType = "credit"
)

// WalletTransaction records every balance movement so debits stay auditable.
type WalletTransaction struct {
	ID          uint                  `json:"id" gorm:"primaryKey"`
	UserID      string                `json:"user_id" gorm:"not null;index;size:255"`
	Type        WalletTransactionType `json:"type" gorm:"not null;index"`
	Amount      int                   `json:"amount" gorm:"not null"`
	Description string                `json:"description" gorm:"size:255"`

	// Optional link to the session paid for
	QuizSessionID *uint `json:"quiz_session_id" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (Wallet) TableName() string {
	return "wallets"
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
