package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"campus-notes-platform/internal/config"
	"campus-notes-platform/internal/storage"
	"campus-notes-platform/models"
)

type fakeStorage struct {
	mu      sync.Mutex
	uploads []string
	deletes []string
	failUp  bool
}

func (f *fakeStorage) Upload(ctx context.Context, data []byte, folder, name string) (storage.StoredObject, error) {
	if f.failUp {
		return storage.StoredObject{}, &storage.StorageError{Op: "upload", Err: errors.New("bucket down")}
	}
	key := folder + "/" + name
	f.mu.Lock()
	f.uploads = append(f.uploads, key)
	f.mu.Unlock()
	return storage.StoredObject{URL: "https://cdn.example.com/" + key, Handle: key}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, handle string) error {
	f.mu.Lock()
	f.deletes = append(f.deletes, handle)
	f.mu.Unlock()
	return nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeStore struct {
	mu       sync.Mutex
	upserts  []models.TrackKey
	subjects []models.Subject
}

func (f *fakeStore) Upsert(ctx context.Context, key models.TrackKey, subjects []models.Subject) (*models.TrackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, key)
	f.subjects = subjects
	return &models.TrackRecord{
		Year:     key.Year,
		Branch:   key.Branch,
		Exam:     key.Exam,
		Subjects: subjects,
		Version:  1,
	}, nil
}

func (f *fakeStore) UpdateUnit(ctx context.Context, key models.TrackKey, subjectName string, unitNumber int, mutate func(*models.Unit) error) (*models.Unit, error) {
	unit := &models.Unit{Number: unitNumber, StorageHandle: "old-handle"}
	if err := mutate(unit); err != nil {
		return nil, err
	}
	return unit, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxChunkSize:          90000,
		GenerationConcurrency: 4,
		MaxConcurrentUnits:    2,
		MaxFileSize:           10 << 20,
	}
}

func newTestIngestion(st *fakeStorage, ex *fakeExtractor, gen TextGenerator, store TrackWriter) *IngestionService {
	generation := NewGenerationService(gen, 4)
	return NewIngestionService(testConfig(), st, ex, generation, store, nil)
}

const validQuizJSON = `{"quiz":[{"question":"q","options":["a","b"],"answer":"a"}]}`

// countingGenerator answers summary and quiz prompts and counts calls.
type countingGenerator struct {
	calls     int32
	quizReply string
	err       error
}

func (g *countingGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.err != nil {
		return "", g.err
	}
	if strings.Contains(prompt, `"quiz"`) {
		return g.quizReply, nil
	}
	return "chunk summary.", nil
}

func courseKey() models.TrackKey {
	return models.TrackKey{Kind: models.TrackCourse, Year: "2", Branch: "CSE"}
}

func TestIngestBatchEndToEnd(t *testing.T) {
	st := &fakeStorage{}
	ex := &fakeExtractor{text: strings.Repeat("a", 500000)}
	gen := &countingGenerator{quizReply: validQuizJSON}
	store := &fakeStore{}
	svc := newTestIngestion(st, ex, gen, store)

	report, err := svc.IngestBatch(context.Background(), courseKey(), []DeclaredSubject{
		{Name: "Maths", Units: []DeclaredUnit{{Number: 1, FileName: "u1.pdf", Data: []byte("%PDF")}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 500k chars at 90k per chunk is 6 chunks, each generating a summary
	// and a quiz.
	if got := atomic.LoadInt32(&gen.calls); got != 12 {
		t.Fatalf("got %d generation calls, want 12", got)
	}
	if report.Ingested != 1 || len(report.Skipped) != 0 {
		t.Fatalf("report %+v", report)
	}
	if len(st.uploads) != 1 {
		t.Fatalf("got %d uploads, want 1", len(st.uploads))
	}
	if !strings.HasPrefix(st.uploads[0], "engineering-notes/2/cse/maths-unit-1-") {
		t.Fatalf("unexpected object key %q", st.uploads[0])
	}

	unit := store.subjects[0].Units[0]
	if unit.Summary == "" || unit.Summary == summaryFallback {
		t.Fatalf("summary not generated: %q", unit.Summary)
	}
	// 6 chunks, each contributing one quiz question.
	if len(unit.Quiz) != 6 {
		t.Fatalf("got %d quiz questions, want 6", len(unit.Quiz))
	}
	if unit.DocumentURL == "" || unit.StorageHandle == "" {
		t.Fatalf("storage fields missing: %+v", unit)
	}
}

func TestIngestBatchUnparseableQuiz(t *testing.T) {
	st := &fakeStorage{}
	ex := &fakeExtractor{text: "some lecture notes"}
	gen := &countingGenerator{quizReply: "this is not json"}
	store := &fakeStore{}
	svc := newTestIngestion(st, ex, gen, store)

	_, err := svc.IngestBatch(context.Background(), courseKey(), []DeclaredSubject{
		{Name: "Maths", Units: []DeclaredUnit{{Number: 1, Data: []byte("%PDF")}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unit := store.subjects[0].Units[0]
	if unit.Summary == "" {
		t.Fatalf("summary missing")
	}
	if unit.Quiz == nil || len(unit.Quiz) != 0 {
		t.Fatalf("unparseable quiz should yield empty quiz, got %+v", unit.Quiz)
	}
}

func TestIngestBatchGenerationUnavailable(t *testing.T) {
	st := &fakeStorage{}
	ex := &fakeExtractor{text: "some lecture notes"}
	gen := &countingGenerator{err: errors.New("service down")}
	store := &fakeStore{}
	svc := newTestIngestion(st, ex, gen, store)

	_, err := svc.IngestBatch(context.Background(), courseKey(), []DeclaredSubject{
		{Name: "Maths", Units: []DeclaredUnit{{Number: 1, Data: []byte("%PDF")}}},
	})
	if err != nil {
		t.Fatalf("generation failure must not fail ingestion: %v", err)
	}

	unit := store.subjects[0].Units[0]
	if unit.Summary != summaryFallback {
		t.Fatalf("got summary %q, want fallback", unit.Summary)
	}
	if len(unit.Quiz) != 1 || unit.Quiz[0].Answer != "Paris" {
		t.Fatalf("quiz fallback not applied: %+v", unit.Quiz)
	}
}

func TestIngestBatchExtractionFailure(t *testing.T) {
	st := &fakeStorage{}
	ex := &fakeExtractor{err: errors.New("broken xref")}
	gen := &countingGenerator{quizReply: validQuizJSON}
	store := &fakeStore{}
	svc := newTestIngestion(st, ex, gen, store)

	_, err := svc.IngestBatch(context.Background(), courseKey(), []DeclaredSubject{
		{Name: "Maths", Units: []DeclaredUnit{{Number: 1, Data: []byte("%PDF")}}},
	})
	if err != nil {
		t.Fatalf("extraction failure must not fail ingestion: %v", err)
	}

	// The sentinel text is one chunk: one summary call plus one quiz call.
	if got := atomic.LoadInt32(&gen.calls); got != 2 {
		t.Fatalf("got %d generation calls, want 2", got)
	}
	unit := store.subjects[0].Units[0]
	if unit.Summary == "" {
		t.Fatalf("summary missing after extraction failure")
	}
}

func TestIngestBatchSkipsInvalidUnits(t *testing.T) {
	st := &fakeStorage{}
	ex := &fakeExtractor{text: "notes"}
	gen := &countingGenerator{quizReply: validQuizJSON}
	store := &fakeStore{}
	svc := newTestIngestion(st, ex, gen, store)

	report, err := svc.IngestBatch(context.Background(), courseKey(), []DeclaredSubject{
		{Name: "", Units: []DeclaredUnit{{Number: 1, Data: []byte("%PDF")}}},
		{Name: "Maths", Units: []DeclaredUnit{
			{Number: 1, Data: nil},
			{Number: 2, Data: []byte("%PDF")},
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Ingested != 1 {
		t.Fatalf("got %d ingested, want 1", report.Ingested)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("got %d skipped, want 2: %+v", len(report.Skipped), report.Skipped)
	}
	if len(store.subjects) != 1 || store.subjects[0].Name != "Maths" {
		t.Fatalf("persisted subjects %+v", store.subjects)
	}
}

func TestIngestBatchNoValidContent(t *testing.T) {
	st := &fakeStorage{}
	ex := &fakeExtractor{text: "notes"}
	gen := &countingGenerator{quizReply: validQuizJSON}
	store := &fakeStore{}
	svc := newTestIngestion(st, ex, gen, store)

	_, err := svc.IngestBatch(context.Background(), courseKey(), []DeclaredSubject{
		{Name: "Maths", Units: []DeclaredUnit{{Number: 1, Data: nil}}},
	})
	if !errors.Is(err, ErrNoValidContent) {
		t.Fatalf("got %v, want ErrNoValidContent", err)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("nothing should be persisted")
	}
}

func TestIngestBatchStorageFailureSkipsUnit(t *testing.T) {
	st := &fakeStorage{failUp: true}
	ex := &fakeExtractor{text: "notes"}
	gen := &countingGenerator{quizReply: validQuizJSON}
	store := &fakeStore{}
	svc := newTestIngestion(st, ex, gen, store)

	_, err := svc.IngestBatch(context.Background(), courseKey(), []DeclaredSubject{
		{Name: "Maths", Units: []DeclaredUnit{{Number: 1, Data: []byte("%PDF")}}},
	})
	if !errors.Is(err, ErrNoValidContent) {
		t.Fatalf("all units failing storage should yield ErrNoValidContent, got %v", err)
	}
}

func TestReplaceUnitDocumentDeletesOldObjectFirst(t *testing.T) {
	st := &fakeStorage{}
	ex := &fakeExtractor{text: "fresh notes"}
	gen := &countingGenerator{quizReply: validQuizJSON}
	store := &fakeStore{}
	svc := newTestIngestion(st, ex, gen, store)

	unit, err := svc.ReplaceUnitDocument(context.Background(), courseKey(), "Maths", 1, []byte("%PDF"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(st.deletes) != 1 || st.deletes[0] != "old-handle" {
		t.Fatalf("old handle not deleted: %+v", st.deletes)
	}
	if len(st.uploads) != 1 {
		t.Fatalf("got %d uploads, want 1", len(st.uploads))
	}
	if unit.Summary == "" || unit.Summary == summaryFallback {
		t.Fatalf("summary not regenerated: %q", unit.Summary)
	}
}

func TestFolderPathAndSlug(t *testing.T) {
	course := folderPath(models.TrackKey{Kind: models.TrackCourse, Year: "2nd Year", Branch: "CSE & AI"})
	if course != "engineering-notes/2nd-year/cse-ai" {
		t.Fatalf("got %q", course)
	}

	exam := folderPath(models.TrackKey{Kind: models.TrackExam, Exam: "GATE 2026"})
	if exam != "exam-notes/gate-2026" {
		t.Fatalf("got %q", exam)
	}
}
