package routes

import (
	"context"
	"net/http"
	"time"

	"campus-notes-platform/middleware"
	"campus-notes-platform/models"
	"campus-notes-platform/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetupActivityRoutes registers student activity tracking: notes opened and
// quizzes submitted. Students read their own records, admins read anyone's.
func SetupActivityRoutes(router *gin.Engine, db *mongo.Database, authMW *middleware.AuthMiddleware) {
	activities := db.Collection("student_activities")
	group := router.Group("/api/activity")

	group.POST("", authMW.RequireAuth(), func(c *gin.Context) {
		var req struct {
			Kind       models.TrackKind   `json:"kind" binding:"required"`
			Year       string             `json:"year"`
			Branch     string             `json:"branch"`
			Exam       string             `json:"exam"`
			Subject    string             `json:"subject" binding:"required"`
			UnitNumber int                `json:"unit_number" binding:"required"`
			Type       string             `json:"activity_type" binding:"required"`
			QuizResult *models.QuizResult `json:"quiz_result"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if req.Type != models.ActivityNotesAccess && req.Type != models.ActivityQuizSubmission {
			utils.RespondWithBadRequest(c, "Unknown activity type", gin.H{"activity_type": req.Type})
			return
		}
		if req.Type == models.ActivityQuizSubmission && req.QuizResult == nil {
			utils.RespondWithBadRequest(c, "quiz_result is required for quiz submissions", nil)
			return
		}

		activity := models.StudentActivity{
			UserID:       middleware.GetUserID(c),
			UserName:     middleware.GetUsername(c),
			Kind:         req.Kind,
			Year:         req.Year,
			Branch:       req.Branch,
			Exam:         req.Exam,
			Subject:      req.Subject,
			UnitNumber:   req.UnitNumber,
			ActivityType: req.Type,
			QuizResult:   req.QuizResult,
			Timestamp:    time.Now(),
		}

		if _, err := activities.InsertOne(context.Background(), activity); err != nil {
			utils.RespondWithInternalError(c, "Failed to record activity", nil)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Activity recorded"})
	})

	group.GET("", authMW.RequireAuth(), func(c *gin.Context) {
		filter := activityFilter(
			middleware.IsAdmin(c),
			middleware.GetUserID(c),
			c.Query("userId"),
			c.Query("activityType"),
			c.Query("subject"),
		)

		findOpts := options.Find().
			SetSort(bson.M{"timestamp": -1}).
			SetLimit(200)

		cursor, err := activities.Find(context.Background(), filter, findOpts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to fetch activities", nil)
			return
		}
		defer cursor.Close(context.Background())

		var results []models.StudentActivity
		if err := cursor.All(context.Background(), &results); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode activities", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"activities": results})
	})
}

// activityFilter scopes an activity query. Admins may query any user;
// everyone else is pinned to their own records no matter what userId the
// request asks for.
func activityFilter(isAdmin bool, requesterID, userID, activityType, subject string) bson.M {
	filter := bson.M{}
	if !isAdmin {
		filter["user_id"] = requesterID
	} else if userID != "" {
		filter["user_id"] = userID
	}
	if activityType != "" {
		filter["activity_type"] = activityType
	}
	if subject != "" {
		filter["subject"] = subject
	}
	return filter
}
