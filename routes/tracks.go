package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"campus-notes-platform/internal/config"
	"campus-notes-platform/middleware"
	"campus-notes-platform/models"
	"campus-notes-platform/services"
	"campus-notes-platform/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// subjectManifest is the "subjects" form field of a batch upload: which
// subjects and unit numbers the request carries. Each declared unit expects a
// file part named notes-file-<subjectIndex>-<unitIndex>.
type subjectManifest struct {
	Name  string         `json:"name"`
	Units []unitManifest `json:"units"`
}

type unitManifest struct {
	Number int `json:"number"`
}

func SetupTrackRoutes(router *gin.Engine, cfg *config.Config, ingestion *services.IngestionService, store *services.TrackStore, authMW *middleware.AuthMiddleware, roleMW *middleware.RoleMiddleware) {
	registerTrackRoutes(router.Group("/api/courses"), models.TrackCourse, cfg, ingestion, store, authMW, roleMW)
	registerTrackRoutes(router.Group("/api/exams"), models.TrackExam, cfg, ingestion, store, authMW, roleMW)
}

func registerTrackRoutes(group *gin.RouterGroup, kind models.TrackKind, cfg *config.Config, ingestion *services.IngestionService, store *services.TrackStore, authMW *middleware.AuthMiddleware, roleMW *middleware.RoleMiddleware) {

	// Batch upload: subjects manifest plus one file part per declared unit.
	group.POST("", authMW.RequireAuth(), roleMW.AdminGuard(), func(c *gin.Context) {
		key, ok := trackKeyFromForm(c, kind)
		if !ok {
			return
		}

		manifestField := c.PostForm("subjects")
		if manifestField == "" {
			utils.RespondWithBadRequest(c, "subjects manifest is required", nil)
			return
		}

		var manifest []subjectManifest
		if err := json.Unmarshal([]byte(manifestField), &manifest); err != nil {
			utils.RespondWithBadRequest(c, "subjects manifest is not valid JSON", gin.H{"error": err.Error()})
			return
		}

		declared := make([]services.DeclaredSubject, 0, len(manifest))
		for si, subject := range manifest {
			ds := services.DeclaredSubject{Name: subject.Name}
			for ui, unit := range subject.Units {
				field := "notes-file-" + strconv.Itoa(si) + "-" + strconv.Itoa(ui)
				data, fileName := readFormFile(c, field, cfg.MaxFileSize)
				ds.Units = append(ds.Units, services.DeclaredUnit{
					Number:   unit.Number,
					FileName: fileName,
					Data:     data,
				})
			}
			declared = append(declared, ds)
		}

		report, err := ingestion.IngestBatch(c.Request.Context(), key, declared)
		if err != nil {
			if errors.Is(err, services.ErrNoValidContent) {
				details := gin.H{}
				if report != nil {
					details["skipped"] = report.Skipped
				}
				utils.RespondWithBadRequest(c, "No valid content in upload batch", details)
				return
			}
			utils.RespondWithInternalError(c, "Failed to ingest batch", gin.H{"error": err.Error()})
			return
		}

		status := http.StatusOK
		if report.Record.Version == 1 {
			status = http.StatusCreated
		}
		c.JSON(status, report)
	})

	// Read: a full key returns one record, optionally narrowed to a subject
	// and unit; a partial key lists matching records.
	group.GET("", func(c *gin.Context) {
		year := c.Query("year")
		branch := c.Query("branch")
		exam := c.Query("exam")

		key := models.TrackKey{Kind: kind, Year: year, Branch: branch, Exam: exam}
		if key.Validate() != nil {
			records, err := store.List(c.Request.Context(), kind, year, branch, exam)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to list records", gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"records": records})
			return
		}

		record, err := store.Find(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, services.ErrTrackNotFound) {
				utils.RespondWithNotFound(c, "Record not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to fetch record", gin.H{"error": err.Error()})
			return
		}

		var unitNumber *int
		if raw := c.Query("unitNumber"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				utils.RespondWithBadRequest(c, "unitNumber must be an integer", nil)
				return
			}
			unitNumber = &n
		}

		filtered := services.FilterRecord(*record, c.Query("subject"), unitNumber)

		if c.Query("quizOnly") == "true" {
			c.JSON(http.StatusOK, gin.H{"record": quizView(filtered)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"record": filtered})
	})

	// Update one unit: optionally replace its document, summary or quiz.
	group.PUT("", authMW.RequireAuth(), roleMW.AdminGuard(), func(c *gin.Context) {
		key, ok := trackKeyFromForm(c, kind)
		if !ok {
			return
		}

		subjectName := c.PostForm("subject")
		unitNumber, err := strconv.Atoi(c.PostForm("unitNumber"))
		if subjectName == "" || err != nil {
			utils.RespondWithBadRequest(c, "subject and numeric unitNumber are required", nil)
			return
		}

		summary, hasSummary := c.GetPostForm("summary")
		quizField, hasQuiz := c.GetPostForm("quiz")

		var quiz []models.Question
		if hasQuiz {
			var incoming []models.Question
			if err := json.Unmarshal([]byte(quizField), &incoming); err != nil {
				utils.RespondWithBadRequest(c, "quiz is not valid JSON", gin.H{"error": err.Error()})
				return
			}
			for _, q := range incoming {
				if !q.WellFormed() {
					continue
				}
				if q.ID.IsZero() {
					q.ID = primitive.NewObjectID()
				}
				quiz = append(quiz, q)
			}
		}

		var unit *models.Unit
		if data, _ := readFormFile(c, "notesFile", cfg.MaxFileSize); len(data) > 0 {
			unit, err = ingestion.ReplaceUnitDocument(c.Request.Context(), key, subjectName, unitNumber, data)
		} else {
			unit, err = store.UpdateUnit(c.Request.Context(), key, subjectName, unitNumber, func(*models.Unit) error { return nil })
		}
		if err != nil {
			respondTrackError(c, err)
			return
		}

		if hasSummary || hasQuiz {
			unit, err = store.UpdateUnit(c.Request.Context(), key, subjectName, unitNumber, func(u *models.Unit) error {
				if hasSummary {
					u.Summary = summary
				}
				if hasQuiz {
					u.Quiz = quiz
				}
				return nil
			})
			if err != nil {
				respondTrackError(c, err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"unit": unit})
	})

	// Delete one unit and its stored document.
	group.DELETE("", authMW.RequireAuth(), roleMW.AdminGuard(), func(c *gin.Context) {
		key := models.TrackKey{
			Kind:   kind,
			Year:   c.Query("year"),
			Branch: c.Query("branch"),
			Exam:   c.Query("exam"),
		}
		if err := key.Validate(); err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}

		subjectName := c.Query("subject")
		unitNumber, err := strconv.Atoi(c.Query("unitNumber"))
		if subjectName == "" || err != nil {
			utils.RespondWithBadRequest(c, "subject and numeric unitNumber are required", nil)
			return
		}

		if err := store.DeleteUnit(c.Request.Context(), key, subjectName, unitNumber); err != nil {
			respondTrackError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Unit deleted"})
	})
}

// trackKeyFromForm builds and validates the key from form fields, responding
// with 400 on failure.
func trackKeyFromForm(c *gin.Context, kind models.TrackKind) (models.TrackKey, bool) {
	key := models.TrackKey{
		Kind:   kind,
		Year:   c.PostForm("year"),
		Branch: c.PostForm("branch"),
		Exam:   c.PostForm("exam"),
	}
	if err := key.Validate(); err != nil {
		utils.RespondWithBadRequest(c, err.Error(), nil)
		return models.TrackKey{}, false
	}
	return key, true
}

// readFormFile reads one multipart file field, bounded by maxSize. A missing
// field returns empty data; batch validation decides what that means.
func readFormFile(c *gin.Context, field string, maxSize int64) ([]byte, string) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, ""
	}
	if maxSize > 0 && header.Size > maxSize {
		return nil, header.Filename
	}

	file, err := header.Open()
	if err != nil {
		return nil, header.Filename
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, header.Filename
	}
	return data, header.Filename
}

// quizView strips documents and summaries from a record, leaving only the
// quizzes. Answers stay in the payload: scoring happens client side and the
// outcome comes back through the activity endpoint.
func quizView(record models.TrackRecord) gin.H {
	subjects := make([]gin.H, 0, len(record.Subjects))
	for _, subject := range record.Subjects {
		units := make([]gin.H, 0, len(subject.Units))
		for _, unit := range subject.Units {
			units = append(units, gin.H{
				"number": unit.Number,
				"quiz":   unit.Quiz,
			})
		}
		subjects = append(subjects, gin.H{"name": subject.Name, "units": units})
	}
	return gin.H{
		"id":       record.ID,
		"year":     record.Year,
		"branch":   record.Branch,
		"exam":     record.Exam,
		"subjects": subjects,
	}
}

func respondTrackError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTrackNotFound):
		utils.RespondWithNotFound(c, "Record not found")
	case errors.Is(err, services.ErrSubjectNotFound):
		utils.RespondWithNotFound(c, "Subject not found")
	case errors.Is(err, services.ErrUnitNotFound):
		utils.RespondWithNotFound(c, "Unit not found")
	case errors.Is(err, services.ErrQuestionNotFound):
		utils.RespondWithNotFound(c, "Question not found")
	case errors.Is(err, services.ErrWriteConflict):
		utils.RespondWithConflict(c, "Record was modified concurrently, retry the request")
	default:
		utils.RespondWithInternalError(c, "Operation failed", gin.H{"error": err.Error()})
	}
}
