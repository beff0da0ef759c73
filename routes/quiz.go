package routes

import (
	"net/http"
	"strconv"

	"campus-notes-platform/middleware"
	"campus-notes-platform/models"
	"campus-notes-platform/services"
	"campus-notes-platform/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SetupQuizRoutes registers question-level operations on a unit's quiz.
// Questions are addressed by their object id within the owning unit.
func SetupQuizRoutes(router *gin.Engine, store *services.TrackStore, authMW *middleware.AuthMiddleware, roleMW *middleware.RoleMiddleware) {
	quiz := router.Group("/api/quiz")

	// Fetch a unit's quiz, or one question of it.
	quiz.GET("", authMW.RequireAuth(), func(c *gin.Context) {
		key, subjectName, unitNumber, ok := quizTargetFromQuery(c)
		if !ok {
			return
		}

		record, err := store.Find(c.Request.Context(), key)
		if err != nil {
			respondTrackError(c, err)
			return
		}

		subject := record.FindSubject(subjectName)
		if subject == nil {
			utils.RespondWithNotFound(c, "Subject not found")
			return
		}
		unit := subject.FindUnit(unitNumber)
		if unit == nil {
			utils.RespondWithNotFound(c, "Unit not found")
			return
		}

		if rawID := c.Query("questionId"); rawID != "" {
			questionID, err := primitive.ObjectIDFromHex(rawID)
			if err != nil {
				utils.RespondWithBadRequest(c, "questionId is not a valid object id", nil)
				return
			}
			for _, q := range unit.Quiz {
				if q.ID == questionID {
					c.JSON(http.StatusOK, gin.H{"question": q})
					return
				}
			}
			utils.RespondWithNotFound(c, "Question not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"quiz": unit.Quiz})
	})

	// Edit one question in place.
	quiz.PATCH("", authMW.RequireAuth(), roleMW.AdminGuard(), func(c *gin.Context) {
		var req struct {
			Kind       string   `json:"kind" binding:"required"`
			Year       string   `json:"year"`
			Branch     string   `json:"branch"`
			Exam       string   `json:"exam"`
			Subject    string   `json:"subject" binding:"required"`
			UnitNumber int      `json:"unit_number" binding:"required"`
			QuestionID string   `json:"question_id" binding:"required"`
			Question   string   `json:"question"`
			Options    []string `json:"options"`
			Answer     string   `json:"answer"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		key := models.TrackKey{Kind: models.TrackKind(req.Kind), Year: req.Year, Branch: req.Branch, Exam: req.Exam}
		if err := key.Validate(); err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}

		questionID, err := primitive.ObjectIDFromHex(req.QuestionID)
		if err != nil {
			utils.RespondWithBadRequest(c, "question_id is not a valid object id", nil)
			return
		}

		unit, err := store.UpdateUnit(c.Request.Context(), key, req.Subject, req.UnitNumber, func(u *models.Unit) error {
			for i := range u.Quiz {
				if u.Quiz[i].ID != questionID {
					continue
				}
				if req.Question != "" {
					u.Quiz[i].Question = req.Question
				}
				if len(req.Options) > 0 {
					u.Quiz[i].Options = req.Options
				}
				if req.Answer != "" {
					u.Quiz[i].Answer = req.Answer
				}
				return nil
			}
			return services.ErrQuestionNotFound
		})
		if err != nil {
			respondTrackError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"unit": unit})
	})

	// Remove one question from its unit's quiz.
	quiz.DELETE("", authMW.RequireAuth(), roleMW.AdminGuard(), func(c *gin.Context) {
		key, subjectName, unitNumber, ok := quizTargetFromQuery(c)
		if !ok {
			return
		}

		questionID, err := primitive.ObjectIDFromHex(c.Query("questionId"))
		if err != nil {
			utils.RespondWithBadRequest(c, "questionId is not a valid object id", nil)
			return
		}

		unit, err := store.UpdateUnit(c.Request.Context(), key, subjectName, unitNumber, func(u *models.Unit) error {
			for i := range u.Quiz {
				if u.Quiz[i].ID == questionID {
					u.Quiz = append(u.Quiz[:i], u.Quiz[i+1:]...)
					return nil
				}
			}
			return services.ErrQuestionNotFound
		})
		if err != nil {
			respondTrackError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"unit": unit})
	})
}

func quizTargetFromQuery(c *gin.Context) (models.TrackKey, string, int, bool) {
	key := models.TrackKey{
		Kind:   models.TrackKind(c.DefaultQuery("kind", string(models.TrackCourse))),
		Year:   c.Query("year"),
		Branch: c.Query("branch"),
		Exam:   c.Query("exam"),
	}
	if err := key.Validate(); err != nil {
		utils.RespondWithBadRequest(c, err.Error(), nil)
		return models.TrackKey{}, "", 0, false
	}

	subjectName := c.Query("subject")
	unitNumber, err := strconv.Atoi(c.Query("unitNumber"))
	if subjectName == "" || err != nil {
		utils.RespondWithBadRequest(c, "subject and numeric unitNumber are required", nil)
		return models.TrackKey{}, "", 0, false
	}

	return key, subjectName, unitNumber, true
}
