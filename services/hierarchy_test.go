package services

import (
	"testing"

	"campus-notes-platform/models"
)

func sampleUnit(number int, marker string) models.Unit {
	return models.Unit{
		Number:        number,
		DocumentURL:   "https://bucket.s3.region.amazonaws.com/" + marker,
		StorageHandle: marker,
		Summary:       "summary " + marker,
		Quiz:          []models.Question{},
	}
}

func TestMergeSubjectsAppendsNewSubject(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{{Name: "Maths", Units: []models.Unit{sampleUnit(1, "m1")}}},
	}

	mergeSubjects(&record, []models.Subject{{Name: "Physics", Units: []models.Unit{sampleUnit(1, "p1")}}})

	if len(record.Subjects) != 2 {
		t.Fatalf("got %d subjects, want 2", len(record.Subjects))
	}
	if record.Subjects[1].Name != "Physics" {
		t.Fatalf("new subject appended as %q", record.Subjects[1].Name)
	}
}

func TestMergeSubjectsAppendsNewUnit(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{{Name: "Maths", Units: []models.Unit{sampleUnit(1, "m1")}}},
	}

	mergeSubjects(&record, []models.Subject{{Name: "Maths", Units: []models.Unit{sampleUnit(2, "m2")}}})

	if len(record.Subjects) != 1 {
		t.Fatalf("got %d subjects, want 1", len(record.Subjects))
	}
	if len(record.Subjects[0].Units) != 2 {
		t.Fatalf("got %d units, want 2", len(record.Subjects[0].Units))
	}
}

func TestMergeSubjectsReplacesExistingUnitInPlace(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{{
			Name:  "Maths",
			Units: []models.Unit{sampleUnit(1, "old"), sampleUnit(2, "keep")},
		}},
	}

	mergeSubjects(&record, []models.Subject{{Name: "Maths", Units: []models.Unit{sampleUnit(1, "new")}}})

	units := record.Subjects[0].Units
	if len(units) != 2 {
		t.Fatalf("got %d units, want 2", len(units))
	}
	if units[0].Number != 1 || units[0].StorageHandle != "new" {
		t.Fatalf("unit 1 not replaced in place: %+v", units[0])
	}
	if units[1].StorageHandle != "keep" {
		t.Fatalf("unit 2 was disturbed: %+v", units[1])
	}
}

func TestMergeSubjectsReportsSupersededHandles(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{{
			Name:  "Maths",
			Units: []models.Unit{sampleUnit(1, "old-object-key"), sampleUnit(2, "keep")},
		}},
	}

	superseded := mergeSubjects(&record, []models.Subject{{
		Name:  "Maths",
		Units: []models.Unit{sampleUnit(1, "new-object-key"), sampleUnit(3, "fresh")},
	}})

	// Only the replaced unit's old handle is reported; appended units and
	// untouched siblings contribute nothing.
	if len(superseded) != 1 || superseded[0] != "old-object-key" {
		t.Fatalf("superseded handles %+v, want [old-object-key]", superseded)
	}
}

func TestMergeSubjectsSameHandleNotSuperseded(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{{Name: "Maths", Units: []models.Unit{sampleUnit(1, "m1")}}},
	}

	superseded := mergeSubjects(&record, []models.Subject{{
		Name:  "Maths",
		Units: []models.Unit{sampleUnit(1, "m1")},
	}})

	if len(superseded) != 0 {
		t.Fatalf("identical re-merge reported handles %+v, want none", superseded)
	}
}

func TestMergeSubjectsIdempotent(t *testing.T) {
	incoming := []models.Subject{{Name: "Maths", Units: []models.Unit{sampleUnit(1, "m1")}}}

	record := models.TrackRecord{Subjects: []models.Subject{}}
	mergeSubjects(&record, incoming)
	mergeSubjects(&record, incoming)

	if len(record.Subjects) != 1 || len(record.Subjects[0].Units) != 1 {
		t.Fatalf("repeated merge changed shape: %+v", record.Subjects)
	}
}

func TestMergeSubjectsCaseSensitiveNames(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{{Name: "maths", Units: []models.Unit{sampleUnit(1, "m1")}}},
	}

	mergeSubjects(&record, []models.Subject{{Name: "Maths", Units: []models.Unit{sampleUnit(1, "M1")}}})

	if len(record.Subjects) != 2 {
		t.Fatalf("differently-cased name merged into existing subject: %+v", record.Subjects)
	}
}

func TestFilterRecordBySubject(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{
			{Name: "Maths", Units: []models.Unit{sampleUnit(1, "m1")}},
			{Name: "Physics", Units: []models.Unit{sampleUnit(1, "p1")}},
		},
	}

	filtered := FilterRecord(record, "Physics", nil)
	if len(filtered.Subjects) != 1 || filtered.Subjects[0].Name != "Physics" {
		t.Fatalf("got %+v", filtered.Subjects)
	}
	// Original record untouched.
	if len(record.Subjects) != 2 {
		t.Fatalf("filter mutated its input")
	}
}

func TestFilterRecordByUnitNumber(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{
			{Name: "Maths", Units: []models.Unit{sampleUnit(1, "m1"), sampleUnit(2, "m2")}},
		},
	}

	two := 2
	filtered := FilterRecord(record, "", &two)
	if len(filtered.Subjects) != 1 {
		t.Fatalf("got %d subjects", len(filtered.Subjects))
	}
	units := filtered.Subjects[0].Units
	if len(units) != 1 || units[0].Number != 2 {
		t.Fatalf("got %+v", units)
	}
}

func TestFilterRecordNoFilters(t *testing.T) {
	record := models.TrackRecord{
		Subjects: []models.Subject{{Name: "Maths"}},
	}
	filtered := FilterRecord(record, "", nil)
	if len(filtered.Subjects) != 1 {
		t.Fatalf("unfiltered record changed: %+v", filtered)
	}
}
