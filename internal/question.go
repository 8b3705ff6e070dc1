package internal

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidQuestion = errors.New("invalid question")

// Normalize trims text fields and fills the default difficulty.
func (q *Question) Normalize() {
	q.Text = strings.TrimSpace(q.Text)
	q.Category = strings.TrimSpace(q.Category)
	for i := range q.Options {
		q.Options[i] = strings.TrimSpace(q.Options[i])
	}
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	q.Difficulty = Difficulty(strings.ToLower(string(q.Difficulty)))
}

func (q *Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("%w: question text is required", ErrInvalidQuestion)
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("%w: exactly %d options are required", ErrInvalidQuestion, OptionsPerQuestion)
	}
	for i, opt := range q.Options {
		if opt == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidQuestion, i+1)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correctIndex must be between 0 and %d", ErrInvalidQuestion, len(q.Options)-1)
	}
	if q.Seconds < MinQuestionSeconds || q.Seconds > MaxQuestionSeconds {
		return fmt.Errorf("%w: seconds must be between %d and %d", ErrInvalidQuestion, MinQuestionSeconds, MaxQuestionSeconds)
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidQuestion, q.Difficulty)
	}
	if q.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidQuestion)
	}
	return nil
}

// Clone returns a deep copy so a room's question sequence stays immutable.
func (q Question) Clone() Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
