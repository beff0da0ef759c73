package services

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"campus-notes-platform/internal/storage"
	"campus-notes-platform/models"
)

var (
	ErrTrackNotFound    = errors.New("track record not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrUnitNotFound     = errors.New("unit not found")
	ErrQuestionNotFound = errors.New("question not found")

	// ErrWriteConflict surfaces when the compare-and-swap persist keeps
	// losing to concurrent writers after all retries.
	ErrWriteConflict = errors.New("write conflict on track record")
)

// One merge is re-read and re-applied this many times before giving up.
const upsertAttempts = 3

// TrackStore reconciles ingested subjects against the stored hierarchy and
// keeps object-storage handles consistent with the records referencing them.
// Persists are compare-and-swap on the record's version field.
type TrackStore struct {
	db      *mongo.Database
	storage storage.ObjectStorage
}

func NewTrackStore(db *mongo.Database, objectStorage storage.ObjectStorage) *TrackStore {
	return &TrackStore{
		db:      db,
		storage: objectStorage,
	}
}

// Upsert finds or creates the record for key and merges the incoming subjects
// into it: new subjects append, new units append, existing units have their
// document URL, storage handle, summary and quiz replaced in place.
func (ts *TrackStore) Upsert(ctx context.Context, key models.TrackKey, subjects []models.Subject) (*models.TrackRecord, error) {
	col := ts.db.Collection(key.Collection())
	deleted := make(map[string]bool)

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		now := time.Now()

		var record models.TrackRecord
		err := col.FindOne(ctx, key.Filter()).Decode(&record)
		if err == mongo.ErrNoDocuments {
			record = models.TrackRecord{
				ID:        primitive.NewObjectID(),
				Year:      key.Year,
				Branch:    key.Branch,
				Exam:      key.Exam,
				Subjects:  subjects,
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, insErr := col.InsertOne(ctx, &record); insErr != nil {
				if mongo.IsDuplicateKeyError(insErr) {
					// Lost the create race; re-read and merge instead.
					continue
				}
				return nil, insErr
			}
			return &record, nil
		}
		if err != nil {
			return nil, err
		}

		superseded := mergeSubjects(&record, subjects)

		// Replaced documents lose their only reference here, so their
		// stored objects are deleted before the record persists. Once
		// each, even across CAS retries.
		for _, handle := range superseded {
			if deleted[handle] {
				continue
			}
			if err := ts.storage.Delete(ctx, handle); err != nil {
				log.Printf("Storage delete failed for handle %s: %v", handle, err)
			}
			deleted[handle] = true
		}

		res, err := col.UpdateOne(ctx,
			bson.M{"_id": record.ID, "version": record.Version},
			bson.M{
				"$set": bson.M{"subjects": record.Subjects, "updated_at": now},
				"$inc": bson.M{"version": 1},
			})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			// A concurrent writer bumped the version; merge again on top
			// of the fresh state.
			continue
		}

		record.Version++
		record.UpdatedAt = now
		return &record, nil
	}

	return nil, ErrWriteConflict
}

// mergeSubjects applies incoming subjects to the record. Subject names match
// case-sensitively; units match on number. Replacement keeps the unit's slot
// and swaps only its artifacts. Returns the storage handles the merge
// superseded; the caller must delete them or they become unreachable.
func mergeSubjects(record *models.TrackRecord, incoming []models.Subject) []string {
	var superseded []string
	for _, sub := range incoming {
		existing := record.FindSubject(sub.Name)
		if existing == nil {
			record.Subjects = append(record.Subjects, sub)
			continue
		}
		for _, unit := range sub.Units {
			target := existing.FindUnit(unit.Number)
			if target == nil {
				existing.Units = append(existing.Units, unit)
				continue
			}
			if target.StorageHandle != "" && target.StorageHandle != unit.StorageHandle {
				superseded = append(superseded, target.StorageHandle)
			}
			target.DocumentURL = unit.DocumentURL
			target.StorageHandle = unit.StorageHandle
			target.Summary = unit.Summary
			target.Quiz = unit.Quiz
		}
	}
	return superseded
}

// Find returns the record for key, or ErrTrackNotFound.
func (ts *TrackStore) Find(ctx context.Context, key models.TrackKey) (*models.TrackRecord, error) {
	var record models.TrackRecord
	err := ts.db.Collection(key.Collection()).FindOne(ctx, key.Filter()).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, ErrTrackNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns the records of one kind matching the non-empty key fields.
// An empty key lists the whole collection.
func (ts *TrackStore) List(ctx context.Context, kind models.TrackKind, year, branch, exam string) ([]models.TrackRecord, error) {
	filter := bson.M{}
	if kind == models.TrackExam {
		if exam != "" {
			filter["exam"] = exam
		}
	} else {
		if year != "" {
			filter["year"] = year
		}
		if branch != "" {
			filter["branch"] = branch
		}
	}

	key := models.TrackKey{Kind: kind}
	cursor, err := ts.db.Collection(key.Collection()).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.TrackRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateUnit locates one unit and applies mutate to it under the same
// compare-and-swap loop as Upsert. The mutation runs again on each retry, so
// it must be idempotent with respect to the unit's fresh state.
func (ts *TrackStore) UpdateUnit(ctx context.Context, key models.TrackKey, subjectName string, unitNumber int, mutate func(*models.Unit) error) (*models.Unit, error) {
	col := ts.db.Collection(key.Collection())

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		now := time.Now()

		var record models.TrackRecord
		err := col.FindOne(ctx, key.Filter()).Decode(&record)
		if err == mongo.ErrNoDocuments {
			return nil, ErrTrackNotFound
		}
		if err != nil {
			return nil, err
		}

		subject := record.FindSubject(subjectName)
		if subject == nil {
			return nil, ErrSubjectNotFound
		}
		unit := subject.FindUnit(unitNumber)
		if unit == nil {
			return nil, ErrUnitNotFound
		}

		if err := mutate(unit); err != nil {
			return nil, err
		}

		res, err := col.UpdateOne(ctx,
			bson.M{"_id": record.ID, "version": record.Version},
			bson.M{
				"$set": bson.M{"subjects": record.Subjects, "updated_at": now},
				"$inc": bson.M{"version": 1},
			})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			continue
		}

		return unit, nil
	}

	return nil, ErrWriteConflict
}

// DeleteUnit removes one unit from its subject. The object-storage handle is
// deleted before the record mutation is persisted; a failed storage delete is
// logged and the removal proceeds, since an orphaned stored object is
// recoverable while a live URL pointing at a deleted object is not.
func (ts *TrackStore) DeleteUnit(ctx context.Context, key models.TrackKey, subjectName string, unitNumber int) error {
	col := ts.db.Collection(key.Collection())
	storageDeleted := false

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		now := time.Now()

		var record models.TrackRecord
		err := col.FindOne(ctx, key.Filter()).Decode(&record)
		if err == mongo.ErrNoDocuments {
			return ErrTrackNotFound
		}
		if err != nil {
			return err
		}

		subject := record.FindSubject(subjectName)
		if subject == nil {
			return ErrSubjectNotFound
		}

		unitIndex := -1
		for i := range subject.Units {
			if subject.Units[i].Number == unitNumber {
				unitIndex = i
				break
			}
		}
		if unitIndex == -1 {
			return ErrUnitNotFound
		}

		// Exactly one storage delete per removal, even across CAS retries.
		if !storageDeleted {
			if handle := subject.Units[unitIndex].StorageHandle; handle != "" {
				if err := ts.storage.Delete(ctx, handle); err != nil {
					log.Printf("Storage delete failed for handle %s: %v", handle, err)
				}
			}
			storageDeleted = true
		}

		subject.Units = append(subject.Units[:unitIndex], subject.Units[unitIndex+1:]...)

		res, err := col.UpdateOne(ctx,
			bson.M{"_id": record.ID, "version": record.Version},
			bson.M{
				"$set": bson.M{"subjects": record.Subjects, "updated_at": now},
				"$inc": bson.M{"version": 1},
			})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			continue
		}

		return nil
	}

	return ErrWriteConflict
}

// FilterRecord returns a copy of the record narrowed to one subject name
// and/or one unit number. Empty name / nil number leave that level intact.
func FilterRecord(record models.TrackRecord, subjectName string, unitNumber *int) models.TrackRecord {
	if subjectName == "" && unitNumber == nil {
		return record
	}

	filtered := record
	filtered.Subjects = make([]models.Subject, 0, len(record.Subjects))
	for _, subject := range record.Subjects {
		if subjectName != "" && subject.Name != subjectName {
			continue
		}
		if unitNumber != nil {
			narrowed := subject
			narrowed.Units = make([]models.Unit, 0, 1)
			for _, unit := range subject.Units {
				if unit.Number == *unitNumber {
					narrowed.Units = append(narrowed.Units, unit)
				}
			}
			subject = narrowed
		}
		filtered.Subjects = append(filtered.Subjects, subject)
	}
	return filtered
}
