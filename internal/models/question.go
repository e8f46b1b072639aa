package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	MultipleChoiceSingle   QuestionType = "multiple_choice_single"
	MultipleChoiceMultiple QuestionType = "multiple_choice_multiple"
	TrueFalse              QuestionType = "true_false"
	FillInBlanks           QuestionType = "fill_in_blanks"
	MatchPairs             QuestionType = "match_pairs"
	OrderingSequence       QuestionType = "ordering_sequence"
	ShortAnswer            QuestionType = "short_answer"
)

type Question struct {
	ID   uint         `json:"id" gorm:"primaryKey"`
	Code string       `json:"code" gorm:"not null;uniqueIndex;size:11"`
	Type QuestionType `json:"question_type" gorm:"not null;index" validate:"required"`

	// Content
	Text          string         `json:"question" gorm:"type:text;not null" validate:"required"`
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"type:jsonb"`
	Solution      *string        `json:"solution" gorm:"type:text"`

	// Marks & timing
	DefaultMarks float64 `json:"default_marks" gorm:"not null;default:1" validate:"min=0"`
	DefaultTime  int     `json:"default_time" gorm:"not null;default:60"` // seconds

	SectionID *uint `json:"section_id" gorm:"index"`
	SkillID   *uint `json:"skill_id" gorm:"index"`

	IsActive bool `json:"is_active" gorm:"not null;default:true;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Section *Section `json:"section" gorm:"foreignKey:SectionID"`
}

// Section groups questions for the per-section results breakdown.
type Section struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"not null;size:200"`
	Slug string `json:"slug" gorm:"not null;uniqueIndex;size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuizQuestion is the quiz to question join row. The pivot keeps its own
// ordering so a quiz can present the same bank question at different positions.
type QuizQuestion struct {
	QuizID     uint `json:"quiz_id" gorm:"primaryKey"`
	QuestionID uint `json:"question_id" gorm:"primaryKey"`
	Position   int  `json:"position" gorm:"not null;default:0"`
}

func (Question) TableName() string {
	return "questions"
}

func (Section) TableName() string {
	return "sections"
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
