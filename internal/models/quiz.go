package models

import (
	"time"

	"gorm.io/gorm"
)

type QuizStatus string

const (
	QuizDraft    QuizStatus = "draft"
	QuizActive   QuizStatus = "active"
	QuizArchived QuizStatus = "archived"
)

type NegativeMarkingType string

const (
	NegativeMarkingFixed      NegativeMarkingType = "fixed"
	NegativeMarkingPercentage NegativeMarkingType = "percentage"
)

type Quiz struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Code        string     `json:"code" gorm:"not null;uniqueIndex;size:11"`
	Slug        string     `json:"slug" gorm:"not null;uniqueIndex;size:255" validate:"required"`
	Title       string     `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string    `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	Status      QuizStatus `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft active archived"`

	// Totals maintained when questions are attached
	TotalQuestions int     `json:"total_questions" gorm:"default:0"`
	TotalDuration  int     `json:"total_duration" gorm:"default:0"` // seconds
	TotalMarks     float64 `json:"total_marks" gorm:"default:0"`

	// Access control
	IsPaid         bool `json:"is_paid" gorm:"not null;default:false"`
	CanRedeem      bool `json:"can_redeem" gorm:"not null;default:false"`
	PointsRequired int  `json:"points_required" gorm:"default:0"`
	IsPrivate      bool `json:"is_private" gorm:"not null;default:false"`

	SubCategoryID *uint `json:"sub_category_id" gorm:"index"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Settings    QuizSettings  `json:"settings" gorm:"foreignKey:QuizID"`
	Questions   []Question    `json:"questions" gorm:"many2many:quiz_questions"`
	Sessions    []QuizSession `json:"sessions" gorm:"foreignKey:QuizID"`
	SubCategory *SubCategory  `json:"sub_category" gorm:"foreignKey:SubCategoryID"`

	// Computed fields (not stored)
	AttemptCount int `json:"attempt_count" gorm:"-"`
}

type QuizSettings struct {
	QuizID    uint      `json:"quiz_id" gorm:"primaryKey;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`

	// Attempt Settings
	RestrictAttempts bool `json:"restrict_attempts" gorm:"not null;default:false;comment:Limit the number of completed attempts"`
	NoOfAttempts     int  `json:"no_of_attempts" gorm:"not null;default:0;comment:Max completed attempts when restricted"`

	// Grading Settings
	AutoGrading           bool                `json:"auto_grading" gorm:"not null;default:true;comment:Use per-question marks instead of a flat quiz mark"`
	CorrectMarks          float64             `json:"correct_marks" gorm:"not null;default:0;comment:Flat marks per correct answer when auto grading is off"`
	EnableNegativeMarking bool                `json:"enable_negative_marking" gorm:"not null;default:false;comment:Deduct marks for wrong answers"`
	NegativeMarkingType   NegativeMarkingType `json:"negative_marking_type" gorm:"not null;default:fixed;comment:fixed or percentage"`
	NegativeMarks         float64             `json:"negative_marks" gorm:"not null;default:0;comment:Deduction value or percentage of the marks pool"`
	CutoffPercentage      float64             `json:"cutoff_percentage" gorm:"not null;default:0;comment:Minimum percentage to pass"`

	// Display Settings
	ShowLeaderboard    bool `json:"show_leaderboard" gorm:"not null;default:true;comment:Expose the leaderboard for this quiz"`
	HideSolutions      bool `json:"hide_solutions" gorm:"not null;default:false;comment:Hide solutions in the results view"`
	ListQuestions      bool `json:"list_questions" gorm:"not null;default:true;comment:List all questions on one page"`
	ShuffleQuestions   bool `json:"shuffle_questions" gorm:"not null;default:false;comment:Randomize question order per session"`
	DisableFinishBtn   bool `json:"disable_finish_button" gorm:"not null;default:false;comment:Hide the finish button until the last question"`
	HideQuizOverview   bool `json:"hide_quiz_overview" gorm:"not null;default:false;comment:Skip the instructions page"`
	DisableSectionNav  bool `json:"disable_section_navigation" gorm:"not null;default:false;comment:Lock navigation to the current section"`
	ShowDetailedReport bool `json:"show_detailed_report" gorm:"not null;default:true;comment:Include per-section breakdown in results"`
}

type QuizSchedule struct {
	ID       uint       `json:"id" gorm:"primaryKey"`
	QuizID   uint       `json:"quiz_id" gorm:"not null;index"`
	Code     string     `json:"code" gorm:"not null;uniqueIndex;size:11"`
	Type     string     `json:"schedule_type" gorm:"not null;default:fixed;comment:fixed or flexible window"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	Status   string     `json:"status" gorm:"default:active;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Quiz Quiz `json:"quiz" gorm:"foreignKey:QuizID"`
}

type SubCategory struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;size:200"`
	Slug string `json:"slug" gorm:"not null;uniqueIndex;size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (QuizSettings) TableName() string {
	return "quiz_settings"
}

func (QuizSchedule) TableName() string {
	return "quiz_schedules"
}

func (SubCategory) TableName() string {
	return "sub_categories"
}

// DefaultQuizSettings returns the settings applied when a quiz has no settings row.
func DefaultQuizSettings(quizID uint) QuizSettings {
	return QuizSettings{
		QuizID:              quizID,
		RestrictAttempts:    false,
		NoOfAttempts:        0,
		AutoGrading:         true,
		CorrectMarks:        0,
		NegativeMarkingType: NegativeMarkingFixed,
		ShowLeaderboard:     true,
		ListQuestions:       true,
		ShowDetailedReport:  true,
	}
}

// EffectiveSettings resolves the quiz settings, falling back to defaults when
// the settings row was never created.
func (q *Quiz) EffectiveSettings() QuizSettings {
	if q.Settings.QuizID == 0 {
		return DefaultQuizSettings(q.ID)
	}
	return q.Settings
}

// IsActiveNow reports whether the schedule window currently allows new sessions.
func (s *QuizSchedule) IsActiveNow(now time.Time) bool {
	if s.Status != "active" {
		return false
	}
	if s.StartsAt != nil && now.Before(*s.StartsAt) {
		return false
	}
	if s.EndsAt != nil && now.After(*s.EndsAt) {
		return false
	}
	return true
}
