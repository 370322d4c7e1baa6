package store

import (
	"context"
	"sort"
	"strconv"
)

const questionKeyPrefix = "questions:"

// QuestionCount is one popular question and how often it was asked.
type QuestionCount struct {
	Question string `json:"question"`
	Count    int64  `json:"count"`
}

// QuestionCounter tracks how often each suggested question is asked per
// character, in a hash per character.
type QuestionCounter struct {
	store Store
}

func NewQuestionCounter(store Store) *QuestionCounter {
	return &QuestionCounter{store: store}
}

func questionKey(character string) string {
	return questionKeyPrefix + character
}

// Record bumps the counter for one question and returns the new count.
func (c *QuestionCounter) Record(ctx context.Context, character, question string) (int64, error) {
	return c.store.HIncrBy(ctx, questionKey(character), question, 1)
}

// Popular lists a character's questions, most asked first. Ties keep a
// stable question-text order so results are deterministic.
func (c *QuestionCounter) Popular(ctx context.Context, character string) ([]QuestionCount, error) {
	raw, err := c.store.HGetAll(ctx, questionKey(character))
	if err != nil {
		return nil, err
	}
	out := make([]QuestionCount, 0, len(raw))
	for q, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, QuestionCount{Question: q, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Question < out[j].Question
	})
	return out, nil
}

// Remove forgets one question for a character.
func (c *QuestionCounter) Remove(ctx context.Context, character, question string) error {
	return c.store.HDel(ctx, questionKey(character), question)
}

// Reset drops all counts for a character.
func (c *QuestionCounter) Reset(ctx context.Context, character string) error {
	return c.store.Delete(ctx, questionKey(character))
}

// ResetAll drops the counts of every listed character.
func (c *QuestionCounter) ResetAll(ctx context.Context, characters []string) error {
	keys := make([]string, 0, len(characters))
	for _, character := range characters {
		keys = append(keys, questionKey(character))
	}
	return c.store.Delete(ctx, keys...)
}
