package services

import (
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campus-notes-platform/models"
)

// CleanQuizPayload strips code-fence markers from generated text and slices
// out the candidate JSON object between the first '{' and the last '}'. When
// no brace pair exists the trimmed original is returned and will fail to
// parse downstream.
func CleanQuizPayload(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	return cleaned
}

// quizEnvelope defers item decoding so one malformed item cannot discard its
// well-formed siblings.
type quizEnvelope struct {
	Quiz []json.RawMessage `json:"quiz"`
}

type quizItem struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

// ParseQuizPayload extracts the structured quiz from raw generated text and
// filters it to well-formed questions. It never fails: undecodable payloads
// and malformed items yield an empty (or shorter) result. The answer is
// required to be present but is not checked for membership in the options;
// scoring compares selections against the answer directly.
func ParseQuizPayload(raw string) []models.Question {
	questions := []models.Question{}

	var envelope quizEnvelope
	if err := json.Unmarshal([]byte(CleanQuizPayload(raw)), &envelope); err != nil {
		return questions
	}

	for _, rawItem := range envelope.Quiz {
		var item quizItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			continue
		}
		if item.Question == "" || len(item.Options) == 0 || item.Answer == "" {
			continue
		}
		questions = append(questions, models.Question{
			ID:       primitive.NewObjectID(),
			Question: item.Question,
			Options:  item.Options,
			Answer:   item.Answer,
		})
	}

	return questions
}
