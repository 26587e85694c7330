package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kabbel/internal/models"
)

// ErrClassification wraps every classifier failure: transport errors and
// replies that are not the expected JSON object.
var ErrClassification = errors.New("classification failed")

// Classifier turns a question into an Intent with one model call.
type Classifier struct {
	client           Completer
	defaultStartYear int
	now              func() time.Time
}

// NewClassifier returns a classifier using client. defaultStartYear fills a
// missing start_year in the reply.
func NewClassifier(client Completer, defaultStartYear int) *Classifier {
	return &Classifier{client: client, defaultStartYear: defaultStartYear, now: time.Now}
}

// rawIntent mirrors the reply JSON with pointers so missing fields can be defaulted.
type rawIntent struct {
	IsRelevant     *bool    `json:"is_relevant"`
	NeedStatistics *bool    `json:"need_statistics"`
	NeedProgram    *bool    `json:"need_program"`
	Parties        []string `json:"partier"`
	StartYear      *int     `json:"start_year"`
	EndYear        *int     `json:"end_year"`
	SearchWords    []string `json:"search_word_debate"`
	TopicProgram   *string  `json:"topic_program"`
}

// Classify asks the model for the intent of question. Any failure is
// returned wrapped in ErrClassification; callers fall back to FallbackIntent.
func (c *Classifier) Classify(ctx context.Context, question string) (models.Intent, error) {
	year := c.now().Year()
	reply, err := c.client.Complete(ctx, ClassifierPrompt(year), ClassifierInput(question))
	if err != nil {
		return models.Intent{}, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	intent, err := ParseIntent(reply, question, c.defaultStartYear, year)
	if err != nil {
		return models.Intent{}, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	return intent, nil
}

// ParseIntent decodes a classifier reply, tolerating markdown code fences.
// Missing fields get the defaults the answer flow expects: irrelevant unless
// stated, years defaultStart..currentYear, the question as search word and topic.
// A relevant intent with a year range outside models.ValidateYearRange is an error.
func ParseIntent(reply, question string, defaultStart, currentYear int) (models.Intent, error) {
	var raw rawIntent
	if err := json.Unmarshal([]byte(StripCodeFence(reply)), &raw); err != nil {
		return models.Intent{}, fmt.Errorf("invalid intent JSON: %w", err)
	}
	intent := models.Intent{
		Parties:      raw.Parties,
		StartYear:    defaultStart,
		EndYear:      currentYear,
		SearchWords:  raw.SearchWords,
		TopicProgram: question,
	}
	if raw.IsRelevant != nil {
		intent.IsRelevant = *raw.IsRelevant
	}
	if raw.NeedStatistics != nil {
		intent.NeedStatistics = *raw.NeedStatistics
	}
	if raw.NeedProgram != nil {
		intent.NeedProgram = *raw.NeedProgram
	}
	if raw.StartYear != nil {
		intent.StartYear = *raw.StartYear
	}
	if raw.EndYear != nil {
		intent.EndYear = *raw.EndYear
	}
	if raw.TopicProgram != nil {
		intent.TopicProgram = *raw.TopicProgram
	}
	if raw.SearchWords == nil {
		intent.SearchWords = []string{question}
	}
	intent.Normalize()
	if intent.IsRelevant {
		if err := intent.Validate(); err != nil {
			return models.Intent{}, err
		}
	}
	return intent, nil
}

// StripCodeFence removes ```json and ``` markers around a reply.
func StripCodeFence(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// FallbackIntent is used when classification fails: relevant, program
// lookup on, no party restriction, years defaultStart..now, and the question
// itself as the only search word and as the program topic.
func FallbackIntent(question string, now time.Time, defaultStartYear int) models.Intent {
	intent := models.Intent{
		IsRelevant:   true,
		NeedProgram:  true,
		Parties:      []string{},
		StartYear:    defaultStartYear,
		EndYear:      now.Year(),
		SearchWords:  []string{question},
		TopicProgram: question,
	}
	intent.Normalize()
	return intent
}
