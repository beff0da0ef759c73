package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"campus-notes-platform/internal/config"
	"campus-notes-platform/internal/storage"
	"campus-notes-platform/internal/telemetry"
	"campus-notes-platform/models"
)

// ErrNoValidContent is returned when a batch contains no unit that survived
// validation and upload, so there is nothing to persist.
var ErrNoValidContent = errors.New("no valid content in upload batch")

// DeclaredUnit is one uploaded document as declared in the batch manifest.
type DeclaredUnit struct {
	Number   int
	FileName string
	Data     []byte
}

// DeclaredSubject groups the declared units of one subject name.
type DeclaredSubject struct {
	Name  string
	Units []DeclaredUnit
}

// SkippedUnit records why a declared unit was left out of the batch result.
type SkippedUnit struct {
	Subject string `json:"subject"`
	Number  int    `json:"number"`
	Reason  string `json:"reason"`
}

// IngestReport is the outcome of one batch: the persisted record, how many
// units made it in, and what was skipped and why.
type IngestReport struct {
	Record   *models.TrackRecord `json:"record"`
	Ingested int                 `json:"ingested"`
	Skipped  []SkippedUnit       `json:"skipped,omitempty"`
}

// TrackWriter is the persistence side of ingestion.
type TrackWriter interface {
	Upsert(ctx context.Context, key models.TrackKey, subjects []models.Subject) (*models.TrackRecord, error)
	UpdateUnit(ctx context.Context, key models.TrackKey, subjectName string, unitNumber int, mutate func(*models.Unit) error) (*models.Unit, error)
}

// IngestionService runs the upload-extract-generate-merge pipeline for
// batches of declared subjects and units.
type IngestionService struct {
	cfg        *config.Config
	storage    storage.ObjectStorage
	extractor  TextExtractor
	generation *GenerationService
	store      TrackWriter
	metrics    *telemetry.Metrics
}

func NewIngestionService(cfg *config.Config, objectStorage storage.ObjectStorage, extractor TextExtractor, generation *GenerationService, store TrackWriter, metrics *telemetry.Metrics) *IngestionService {
	return &IngestionService{
		cfg:        cfg,
		storage:    objectStorage,
		extractor:  extractor,
		generation: generation,
		store:      store,
		metrics:    metrics,
	}
}

// IngestBatch processes every declared unit and merges the survivors into the
// track record for key. Units fail independently: a storage write failure
// skips that unit and lets its siblings continue. Only a batch with zero
// surviving units fails outright, with ErrNoValidContent.
func (is *IngestionService) IngestBatch(ctx context.Context, key models.TrackKey, declared []DeclaredSubject) (*IngestReport, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	type processed struct {
		subjectIdx int
		unit       models.Unit
	}

	var (
		mu      sync.Mutex
		done    []processed
		skipped []SkippedUnit
	)

	skip := func(subject string, number int, reason string) {
		mu.Lock()
		skipped = append(skipped, SkippedUnit{Subject: subject, Number: number, Reason: reason})
		mu.Unlock()
		is.metrics.RecordUnitSkipped(ctx, reason)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxOf(is.cfg.MaxConcurrentUnits, 1))

	for si, subject := range declared {
		if subject.Name == "" {
			for _, unit := range subject.Units {
				skip("", unit.Number, "missing subject name")
			}
			continue
		}
		for _, unit := range subject.Units {
			if len(unit.Data) == 0 {
				skip(subject.Name, unit.Number, "empty file")
				continue
			}

			g.Go(func() error {
				built, err := is.processUnit(gctx, key, subject.Name, unit)
				if err != nil {
					// Unit failures stay local to the unit so the rest of
					// the batch proceeds.
					log.Printf("Unit %s/%d failed: %v", subject.Name, unit.Number, err)
					skip(subject.Name, unit.Number, err.Error())
					return nil
				}
				mu.Lock()
				done = append(done, processed{subjectIdx: si, unit: built})
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Regroup survivors under their declared subjects, preserving declaration
	// order for subjects and unit numbers within them.
	subjects := make([]models.Subject, 0, len(declared))
	for si, subject := range declared {
		built := models.Subject{Name: subject.Name}
		for _, declaredUnit := range subject.Units {
			for _, p := range done {
				if p.subjectIdx == si && p.unit.Number == declaredUnit.Number {
					built.Units = append(built.Units, p.unit)
					break
				}
			}
		}
		if len(built.Units) > 0 {
			subjects = append(subjects, built)
		}
	}

	if len(subjects) == 0 {
		return &IngestReport{Skipped: skipped}, ErrNoValidContent
	}

	record, err := is.store.Upsert(ctx, key, subjects)
	if err != nil {
		return nil, err
	}

	for _, subject := range subjects {
		for range subject.Units {
			is.metrics.RecordUnitIngested(ctx, string(key.Kind))
		}
	}

	return &IngestReport{
		Record:   record,
		Ingested: len(done),
		Skipped:  skipped,
	}, nil
}

// processUnit uploads one document and derives its study aids. A storage
// write failure aborts the unit; everything after the upload degrades instead
// of failing, so a stored document always gets a summary and a quiz even if
// they are fallbacks.
func (is *IngestionService) processUnit(ctx context.Context, key models.TrackKey, subjectName string, unit DeclaredUnit) (models.Unit, error) {
	ctx, span := otel.Tracer("ingestion").Start(ctx, "ingest.process_unit",
		trace.WithAttributes(
			attribute.String("track.key", key.String()),
			attribute.String("unit.subject", subjectName),
			attribute.Int("unit.number", unit.Number),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		is.metrics.RecordUnitDuration(ctx, time.Since(start).Seconds())
	}()

	stored, err := is.storage.Upload(ctx, unit.Data, folderPath(key), fileName(subjectName, unit.Number))
	if err != nil {
		return models.Unit{}, err
	}

	text, err := is.extractor.Extract(unit.Data)
	if err != nil {
		log.Printf("Extraction failed for %s/unit-%d: %v", subjectName, unit.Number, err)
		text = ExtractionFailedText
	}

	chunks := SplitText(text, is.cfg.MaxChunkSize)

	summary, err := is.generation.GenerateForTask(ctx, chunks, TaskSummary)
	if err != nil {
		log.Printf("Summary generation failed for %s/unit-%d: %v", subjectName, unit.Number, err)
		summary = TaskSummary.Fallback()
		is.metrics.RecordGenerationFallback(ctx, string(TaskSummary))
	}

	rawQuizzes, err := is.generation.GenerateEach(ctx, chunks, TaskQuiz)
	if err != nil {
		log.Printf("Quiz generation failed for %s/unit-%d: %v", subjectName, unit.Number, err)
		rawQuizzes = []string{TaskQuiz.Fallback()}
		is.metrics.RecordGenerationFallback(ctx, string(TaskQuiz))
	}
	quiz := make([]models.Question, 0)
	for _, raw := range rawQuizzes {
		quiz = append(quiz, ParseQuizPayload(raw)...)
	}

	return models.Unit{
		Number:        unit.Number,
		DocumentURL:   stored.URL,
		StorageHandle: stored.Handle,
		Summary:       summary,
		Quiz:          quiz,
	}, nil
}

// ReplaceUnitDocument swaps an existing unit's document for a new upload and
// regenerates its summary. The old stored object is deleted first; a failed
// delete is logged and the replacement proceeds.
func (is *IngestionService) ReplaceUnitDocument(ctx context.Context, key models.TrackKey, subjectName string, unitNumber int, data []byte) (*models.Unit, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	current, err := is.store.UpdateUnit(ctx, key, subjectName, unitNumber, func(*models.Unit) error { return nil })
	if err != nil {
		return nil, err
	}

	if current.StorageHandle != "" {
		if err := is.storage.Delete(ctx, current.StorageHandle); err != nil {
			log.Printf("Storage delete failed for handle %s: %v", current.StorageHandle, err)
		}
	}

	stored, err := is.storage.Upload(ctx, data, folderPath(key), fileName(subjectName, unitNumber))
	if err != nil {
		return nil, err
	}

	text, err := is.extractor.Extract(data)
	if err != nil {
		log.Printf("Extraction failed for %s/unit-%d: %v", subjectName, unitNumber, err)
		text = ExtractionFailedText
	}

	chunks := SplitText(text, is.cfg.MaxChunkSize)
	summary, err := is.generation.GenerateForTask(ctx, chunks, TaskSummary)
	if err != nil {
		summary = TaskSummary.Fallback()
		is.metrics.RecordGenerationFallback(ctx, string(TaskSummary))
	}

	return is.store.UpdateUnit(ctx, key, subjectName, unitNumber, func(u *models.Unit) error {
		u.DocumentURL = stored.URL
		u.StorageHandle = stored.Handle
		u.Summary = summary
		return nil
	})
}

// folderPath mirrors the storage layout to the track key so objects are easy
// to locate from the bucket side.
func folderPath(key models.TrackKey) string {
	if key.Kind == models.TrackExam {
		return fmt.Sprintf("exam-notes/%s", slugify(key.Exam))
	}
	return fmt.Sprintf("engineering-notes/%s/%s", slugify(key.Year), slugify(key.Branch))
}

func fileName(subjectName string, unitNumber int) string {
	return fmt.Sprintf("%s-unit-%d-%d", slugify(subjectName), unitNumber, time.Now().UnixMilli())
}

// slugify lowercases and collapses non-alphanumeric runs to single hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
