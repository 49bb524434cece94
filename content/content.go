// Package content serves the embedded quiz dataset. The data is opaque to the
// gate; it is only checked for shape once at startup.
package content

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

//go:embed quiz.json
var quizJSON []byte

var ErrInvalidDataset = errors.New("invalid quiz dataset")

type Question struct {
	ID                 int      `json:"id" validate:"required"`
	Code               string   `json:"code"`
	ArticleNumber      string   `json:"articleNumber" validate:"required"`
	ArticleTitle       string   `json:"articleTitle"`
	ArticleText        string   `json:"articleText"`
	Question           string   `json:"question" validate:"required"`
	Options            []string `json:"options" validate:"min=2,dive,required"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex" validate:"gte=0"`
	Explanation        string   `json:"explanation"`
}

type Flashcard struct {
	ID            int    `json:"id" validate:"required"`
	ArticleNumber string `json:"articleNumber"`
	Front         string `json:"front" validate:"required"`
	Back          string `json:"back" validate:"required"`
}

type dataset struct {
	Questions  []Question  `json:"questions" validate:"required,min=1,dive"`
	Flashcards []Flashcard `json:"flashcards" validate:"dive"`
}

// Service holds the encoded dataset. Handlers write the bytes as they are.
type Service struct {
	questions  json.RawMessage
	dataset    json.RawMessage
	nQuestions int
	nCards     int
}

// New loads the embedded dataset.
func New() (*Service, error) {
	return Load(quizJSON)
}

// Load validates raw and keeps it for serving.
func Load(raw []byte) (*Service, error) {
	var parts struct {
		Questions json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	var d dataset
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if err := validator.New().Struct(d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if err := checkQuestions(d.Questions); err != nil {
		return nil, err
	}

	return &Service{
		questions:  parts.Questions,
		dataset:    json.RawMessage(raw),
		nQuestions: len(d.Questions),
		nCards:     len(d.Flashcards),
	}, nil
}

func checkQuestions(questions []Question) error {
	seen := make(map[int]struct{}, len(questions))
	for _, q := range questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidDataset, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.CorrectAnswerIndex >= len(q.Options) {
			return fmt.Errorf("%w: question %d answer index %d out of range", ErrInvalidDataset, q.ID, q.CorrectAnswerIndex)
		}
	}
	return nil
}

// Questions is the JSON array of questions.
func (s *Service) Questions() []byte {
	return s.questions
}

// Dataset is the full JSON object, questions and flashcards.
func (s *Service) Dataset() []byte {
	return s.dataset
}

func (s *Service) QuestionCount() int {
	return s.nQuestions
}

func (s *Service) FlashcardCount() int {
	return s.nCards
}
