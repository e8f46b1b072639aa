package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/examsphere/quiz-session-service/internal/models"
)

type scoringService struct {
	logger *slog.Logger
}

func NewScoringService(logger *slog.Logger) ScoringService {
	return &scoringService{logger: logger}
}

// ===== ANSWER EVALUATION =====

// Evaluate compares the submitted answer with the question's answer key.
// The comparison rule depends on the question type: single valued types use
// scalar equality, multiple choice uses set equality, blanks and ordering
// use positional equality, match pairs uses key/value equality.
func (s *scoringService) Evaluate(question *models.Question, submitted json.RawMessage) (bool, error) {
	if len(submitted) == 0 || len(question.CorrectAnswer) == 0 {
		return false, nil
	}

	key := json.RawMessage(question.CorrectAnswer)

	switch question.Type {
	case models.MultipleChoiceSingle, models.TrueFalse:
		return scalarsEqual(key, submitted)

	case models.ShortAnswer:
		return textEqual(key, submitted)

	case models.MultipleChoiceMultiple:
		return setsEqual(key, submitted)

	case models.FillInBlanks:
		return sequencesEqual(key, submitted, true)

	case models.OrderingSequence:
		return sequencesEqual(key, submitted, false)

	case models.MatchPairs:
		return pairsEqual(key, submitted)

	default:
		return false, fmt.Errorf("unsupported question type: %s", question.Type)
	}
}

// ===== MARKING =====

// Mark applies the per-answer marking rule. The marks pool is the question's
// own default marks under auto grading, otherwise the quiz level flat mark.
// A wrong answer deducts either a fixed value or a percentage of the pool,
// rounded half up to two decimals.
func (s *scoringService) Mark(settings models.QuizSettings, question *models.Question, isCorrect bool) AnswerMarks {
	pool := question.DefaultMarks
	if !settings.AutoGrading {
		pool = settings.CorrectMarks
	}

	if isCorrect {
		return AnswerMarks{Earned: pool}
	}

	if !settings.EnableNegativeMarking {
		return AnswerMarks{}
	}

	deducted := settings.NegativeMarks
	if settings.NegativeMarkingType == models.NegativeMarkingPercentage {
		deducted = roundHalfUp(pool*settings.NegativeMarks/100, 2)
	}
	return AnswerMarks{Deducted: deducted}
}

// ===== AGGREGATION =====

// Aggregate folds all answer records into the frozen results payload written
// at finalize. The payload is never recomputed afterwards.
func (s *scoringService) Aggregate(quiz *models.Quiz, session *models.QuizSession, answers []*models.SessionQuestion) *models.SessionResults {
	settings := quiz.EffectiveSettings()

	totalQuestions := quiz.TotalQuestions
	if totalQuestions == 0 {
		totalQuestions = len(answers)
	}

	results := &models.SessionResults{
		TotalQuestions: totalQuestions,
		TimeTaken:      session.TotalTimeTaken,
	}

	sections := make(map[string]*models.SectionResult)
	var sectionOrder []string

	for _, answer := range answers {
		answered := answer.Status.CountsAsAnswered()
		if answered {
			results.AnsweredCount++
			if answer.IsCorrect {
				results.CorrectCount++
			} else {
				results.WrongCount++
			}
		}

		results.Score += answer.MarksEarned - answer.MarksDeducted
		results.MarksDeducted += answer.MarksDeducted

		if !settings.ShowDetailedReport || answer.Question.Section == nil {
			continue
		}
		name := answer.Question.Section.Name
		section, ok := sections[name]
		if !ok {
			section = &models.SectionResult{Name: name}
			sections[name] = section
			sectionOrder = append(sectionOrder, name)
		}
		section.Total++
		section.Score += answer.MarksEarned - answer.MarksDeducted
		if answered {
			if answer.IsCorrect {
				section.CorrectCount++
			} else {
				section.WrongCount++
			}
		}
	}

	results.UnansweredCount = totalQuestions - results.AnsweredCount
	if results.UnansweredCount < 0 {
		results.UnansweredCount = 0
	}

	results.Score = roundHalfUp(results.Score, 2)
	results.MarksDeducted = roundHalfUp(results.MarksDeducted, 2)
	results.TotalMarks = quiz.TotalMarks

	if quiz.TotalMarks > 0 {
		percentage := results.Score / quiz.TotalMarks * 100
		if percentage < 0 {
			percentage = 0
		}
		results.Percentage = roundHalfUp(percentage, 2)
	}

	results.Passed = results.Percentage >= settings.CutoffPercentage

	for _, name := range sectionOrder {
		section := sections[name]
		section.Score = roundHalfUp(section.Score, 2)
		results.Sections = append(results.Sections, *section)
	}

	return results
}

// roundHalfUp rounds to the given number of decimal places with ties away
// from zero.
func roundHalfUp(value float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(value*shift) / shift
}

// ===== COMPARISON HELPERS =====

func scalarsEqual(expected, submitted json.RawMessage) (bool, error) {
	var want, got interface{}
	if err := json.Unmarshal(expected, &want); err != nil {
		return false, fmt.Errorf("invalid answer key: %w", err)
	}
	if err := json.Unmarshal(submitted, &got); err != nil {
		return false, fmt.Errorf("invalid submitted answer: %w", err)
	}
	return normalizeScalar(want) == normalizeScalar(got), nil
}

func textEqual(expected, submitted json.RawMessage) (bool, error) {
	var want, got string
	if err := json.Unmarshal(expected, &want); err != nil {
		return false, fmt.Errorf("invalid answer key: %w", err)
	}
	if err := json.Unmarshal(submitted, &got); err != nil {
		return false, fmt.Errorf("invalid submitted answer: %w", err)
	}
	return normalizeText(want) == normalizeText(got), nil
}

func setsEqual(expected, submitted json.RawMessage) (bool, error) {
	want, err := toScalarSlice(expected)
	if err != nil {
		return false, fmt.Errorf("invalid answer key: %w", err)
	}
	got, err := toScalarSlice(submitted)
	if err != nil {
		return false, fmt.Errorf("invalid submitted answer: %w", err)
	}
	if len(want) != len(got) {
		return false, nil
	}
	seen := make(map[string]int, len(want))
	for _, v := range want {
		seen[v]++
	}
	for _, v := range got {
		seen[v]--
		if seen[v] < 0 {
			return false, nil
		}
	}
	return true, nil
}

func sequencesEqual(expected, submitted json.RawMessage, caseInsensitive bool) (bool, error) {
	want, err := toScalarSlice(expected)
	if err != nil {
		return false, fmt.Errorf("invalid answer key: %w", err)
	}
	got, err := toScalarSlice(submitted)
	if err != nil {
		return false, fmt.Errorf("invalid submitted answer: %w", err)
	}
	if len(want) != len(got) {
		return false, nil
	}
	for i := range want {
		a, b := want[i], got[i]
		if caseInsensitive {
			a, b = normalizeText(a), normalizeText(b)
		}
		if a != b {
			return false, nil
		}
	}
	return true, nil
}

func pairsEqual(expected, submitted json.RawMessage) (bool, error) {
	var want, got map[string]interface{}
	if err := json.Unmarshal(expected, &want); err != nil {
		return false, fmt.Errorf("invalid answer key: %w", err)
	}
	if err := json.Unmarshal(submitted, &got); err != nil {
		return false, fmt.Errorf("invalid submitted answer: %w", err)
	}
	if len(want) != len(got) {
		return false, nil
	}
	for key, value := range want {
		other, ok := got[key]
		if !ok || normalizeScalar(value) != normalizeScalar(other) {
			return false, nil
		}
	}
	return true, nil
}

func toScalarSlice(raw json.RawMessage) ([]string, error) {
	var values []interface{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = normalizeScalar(v)
	}
	return out, nil
}

// normalizeScalar renders a decoded JSON value in a canonical string form so
// "2" submitted as a string and 2 stored as a number still compare equal.
func normalizeScalar(v interface{}) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", value), "0"), ".")
	case bool:
		return fmt.Sprintf("%t", value)
	case nil:
		return ""
	default:
		encoded, _ := json.Marshal(value)
		return string(encoded)
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
