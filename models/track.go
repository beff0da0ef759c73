package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrackKind selects which study track a record belongs to.
type TrackKind string

const (
	TrackCourse TrackKind = "course"
	TrackExam   TrackKind = "exam"
)

// TrackKey identifies one top-level study record. Course tracks are keyed by
// year+branch, exam tracks by exam name. The key is immutable once a record
// exists and is the uniqueness key of its collection.
type TrackKey struct {
	Kind   TrackKind `json:"kind"`
	Year   string    `json:"year,omitempty"`
	Branch string    `json:"branch,omitempty"`
	Exam   string    `json:"exam,omitempty"`
}

// Collection returns the Mongo collection backing this track kind.
func (k TrackKey) Collection() string {
	if k.Kind == TrackExam {
		return "exams"
	}
	return "courses"
}

// Filter returns the lookup filter for this key.
func (k TrackKey) Filter() bson.M {
	if k.Kind == TrackExam {
		return bson.M{"exam": k.Exam}
	}
	return bson.M{"year": k.Year, "branch": k.Branch}
}

// Validate checks that the fields required by the key's kind are present.
func (k TrackKey) Validate() error {
	switch k.Kind {
	case TrackCourse:
		if k.Year == "" || k.Branch == "" {
			return fmt.Errorf("course key requires year and branch")
		}
	case TrackExam:
		if k.Exam == "" {
			return fmt.Errorf("exam key requires exam name")
		}
	default:
		return fmt.Errorf("unknown track kind %q", k.Kind)
	}
	return nil
}

func (k TrackKey) String() string {
	if k.Kind == TrackExam {
		return fmt.Sprintf("exam/%s", k.Exam)
	}
	return fmt.Sprintf("course/%s/%s", k.Year, k.Branch)
}

// TrackRecord is one top-level record: a course offering or an exam track and
// the subjects ingested under it. Version backs the compare-and-swap persist
// in the merge-upsert path.
type TrackRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Year      string             `bson:"year,omitempty" json:"year,omitempty"`
	Branch    string             `bson:"branch,omitempty" json:"branch,omitempty"`
	Exam      string             `bson:"exam,omitempty" json:"exam,omitempty"`
	Subjects  []Subject          `bson:"subjects" json:"subjects"`
	Version   int64              `bson:"version" json:"version"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// FindSubject returns a pointer into the record's subject slice, or nil.
// Subject names match case-sensitively.
func (r *TrackRecord) FindSubject(name string) *Subject {
	for i := range r.Subjects {
		if r.Subjects[i].Name == name {
			return &r.Subjects[i]
		}
	}
	return nil
}

// Subject groups the units uploaded under one subject name. Names are unique
// within a record, unit numbers are unique within a subject.
type Subject struct {
	Name  string `bson:"name" json:"name"`
	Units []Unit `bson:"units" json:"units"`
}

// FindUnit returns a pointer into the subject's unit slice, or nil.
func (s *Subject) FindUnit(number int) *Unit {
	for i := range s.Units {
		if s.Units[i].Number == number {
			return &s.Units[i]
		}
	}
	return nil
}

// Unit is the atomic artifact: one uploaded document plus its generated study
// aids. StorageHandle is the deletable object-storage reference for
// DocumentURL and must be deleted before the unit is removed or replaced.
type Unit struct {
	Number        int        `bson:"number" json:"number"`
	DocumentURL   string     `bson:"document_url" json:"document_url"`
	StorageHandle string     `bson:"storage_handle" json:"storage_handle"`
	Summary       string     `bson:"summary" json:"summary"`
	Quiz          []Question `bson:"quiz" json:"quiz"`
}

// Question is one multiple-choice quiz item.
type Question struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Question string             `bson:"question" json:"question"`
	Options  []string           `bson:"options" json:"options"`
	Answer   string             `bson:"answer" json:"answer"`
}

// WellFormed reports whether the question carries a prompt, at least one
// option and an answer. Membership of the answer in the options is not
// enforced; scoring compares submitted choices against Answer directly.
func (q Question) WellFormed() bool {
	if q.Question == "" || q.Answer == "" || len(q.Options) == 0 {
		return false
	}
	return true
}
