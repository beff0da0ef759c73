package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int32
	reply   func(prompt string) (string, error)
	prompts []string
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply(prompt)
}

func TestGenerateForTaskPreservesChunkOrder(t *testing.T) {
	chunks := []string{"alpha", "beta", "gamma", "delta"}
	gen := &fakeGenerator{reply: func(prompt string) (string, error) {
		// Echo back the chunk embedded in the prompt.
		for _, chunk := range chunks {
			if strings.Contains(prompt, chunk) {
				return "sum(" + chunk + ")", nil
			}
		}
		return "", errors.New("unknown chunk")
	}}

	svc := NewGenerationService(gen, 2)
	out, err := svc.GenerateForTask(context.Background(), chunks, TaskSummary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "sum(alpha) sum(beta) sum(gamma) sum(delta)"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
	if got := atomic.LoadInt32(&gen.calls); got != 4 {
		t.Fatalf("got %d calls, want 4", got)
	}
}

func TestGenerateForTaskPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	gen := &fakeGenerator{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "bad") {
			return "", boom
		}
		return "ok", nil
	}}

	svc := NewGenerationService(gen, 1)
	_, err := svc.GenerateForTask(context.Background(), []string{"fine", "bad", "fine"}, TaskQuiz)
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want wrapped boom", err)
	}
}

func TestGenerateForTaskOneCallPerChunk(t *testing.T) {
	gen := &fakeGenerator{reply: func(string) (string, error) { return "r", nil }}
	svc := NewGenerationService(gen, 8)

	chunks := make([]string, 6)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("chunk-%d", i)
	}
	if _, err := svc.GenerateForTask(context.Background(), chunks, TaskSummary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&gen.calls); got != 6 {
		t.Fatalf("got %d calls, want 6", got)
	}
}

func TestTaskPrompts(t *testing.T) {
	summary := TaskSummary.Prompt("the content")
	if !strings.HasPrefix(summary, "Generate a concise summary") || !strings.Contains(summary, "the content") {
		t.Fatalf("summary prompt malformed: %q", summary)
	}

	quiz := TaskQuiz.Prompt("the content")
	if !strings.Contains(quiz, `"quiz"`) || !strings.Contains(quiz, "the content") {
		t.Fatalf("quiz prompt malformed: %q", quiz)
	}
}
