package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity types recorded by the student activity endpoint.
const (
	ActivityNotesAccess    = "notes_access"
	ActivityQuizSubmission = "quiz_submission"
)

// StudentActivity is a fire-and-forget telemetry record of a student opening
// notes or submitting a quiz. Course and exam tracks share one collection,
// distinguished by Kind.
type StudentActivity struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	UserName     string             `bson:"user_name" json:"user_name"`
	Kind         TrackKind          `bson:"kind" json:"kind"`
	Year         string             `bson:"year,omitempty" json:"year,omitempty"`
	Branch       string             `bson:"branch,omitempty" json:"branch,omitempty"`
	Exam         string             `bson:"exam,omitempty" json:"exam,omitempty"`
	Subject      string             `bson:"subject" json:"subject"`
	UnitNumber   int                `bson:"unit_number" json:"unit_number"`
	ActivityType string             `bson:"activity_type" json:"activity_type"`
	QuizResult   *QuizResult        `bson:"quiz_result,omitempty" json:"quiz_result,omitempty"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
}

// QuizResult holds the outcome of one quiz submission. Answers maps question
// ids to the selected option.
type QuizResult struct {
	Score          int               `bson:"score" json:"score"`
	TotalQuestions int               `bson:"total_questions" json:"total_questions"`
	Answers        map[string]string `bson:"answers,omitempty" json:"answers,omitempty"`
}
