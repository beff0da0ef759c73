package routes

import (
	"context"
	"log"
	"net/http"
	"time"

	"campus-notes-platform/middleware"
	"campus-notes-platform/models"
	"campus-notes-platform/services"
	"campus-notes-platform/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetupMeetingRoutes registers counseling meeting booking and approval.
// Email notifications are best effort; a failed send never fails the request.
func SetupMeetingRoutes(router *gin.Engine, db *mongo.Database, email services.EmailSender, authMW *middleware.AuthMiddleware, roleMW *middleware.RoleMiddleware) {
	meetings := db.Collection("meetings")
	group := router.Group("/api/meetings")

	group.POST("", func(c *gin.Context) {
		var meeting models.Meeting
		if err := c.ShouldBindJSON(&meeting); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		meeting.ID = primitive.NewObjectID()
		meeting.Approved = false
		meeting.CreatedAt = time.Now()
		meeting.UpdatedAt = time.Now()

		if _, err := meetings.InsertOne(context.Background(), meeting); err != nil {
			utils.RespondWithInternalError(c, "Failed to create meeting request", nil)
			return
		}

		if email != nil {
			go func(m models.Meeting) {
				if err := email.SendMeetingRequested(m); err != nil {
					log.Printf("Meeting request email failed: %v", err)
				}
			}(meeting)
		}

		c.JSON(http.StatusCreated, gin.H{"meeting": meeting})
	})

	group.GET("", authMW.RequireAuth(), roleMW.AdminGuard(), func(c *gin.Context) {
		filter := bson.M{}
		if approved := c.Query("approved"); approved == "true" {
			filter["approved"] = true
		} else if approved == "false" {
			filter["approved"] = false
		}

		findOpts := options.Find().SetSort(bson.M{"created_at": -1})
		cursor, err := meetings.Find(context.Background(), filter, findOpts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to fetch meetings", nil)
			return
		}
		defer cursor.Close(context.Background())

		var results []models.Meeting
		if err := cursor.All(context.Background(), &results); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode meetings", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"meetings": results})
	})

	group.PATCH("/:id/approve", authMW.RequireAuth(), roleMW.AdminGuard(), func(c *gin.Context) {
		meetingID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid meeting id", nil)
			return
		}

		var meeting models.Meeting
		err = meetings.FindOneAndUpdate(
			context.Background(),
			bson.M{"_id": meetingID},
			bson.M{"$set": bson.M{"approved": true, "updated_at": time.Now()}},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&meeting)
		if err == mongo.ErrNoDocuments {
			utils.RespondWithNotFound(c, "Meeting not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to approve meeting", nil)
			return
		}

		if email != nil {
			go func(m models.Meeting) {
				if err := email.SendMeetingApproved(m); err != nil {
					log.Printf("Meeting approval email failed: %v", err)
				}
			}(meeting)
		}

		c.JSON(http.StatusOK, gin.H{"meeting": meeting})
	})
}
