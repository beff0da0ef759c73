package routes

import (
	"context"
	"net/http"
	"time"

	"campus-notes-platform/internal/auth"
	"campus-notes-platform/internal/config"
	"campus-notes-platform/models"
	"campus-notes-platform/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, db *mongo.Database) {
	authGroup := router.Group("/api/auth")

	usersCollection := db.Collection("users")

	// Register endpoint. Self-registration always creates students; admins
	// are provisioned out of band.
	authGroup.POST("/register", func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var existingUser models.User
		if err := usersCollection.FindOne(context.Background(), bson.M{"username": req.Username}).Decode(&existingUser); err == nil {
			utils.RespondWithError(c, http.StatusConflict, "username_exists", "Username already exists", nil)
			return
		}

		hashedPassword, err := utils.HashPassword(req.Password, cfg.BcryptCost)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to process password", nil)
			return
		}

		user := models.User{
			ID:           primitive.NewObjectID(),
			Username:     req.Username,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hashedPassword,
			Role:         models.RoleStudent,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}

		if _, err := usersCollection.InsertOne(context.Background(), user); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				utils.RespondWithError(c, http.StatusConflict, "username_exists", "Username already exists", nil)
				return
			}
			utils.RespondWithInternalError(c, "Failed to create user", nil)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered successfully",
			"user": models.UserInfo{
				ID:       user.ID.Hex(),
				Username: user.Username,
				Name:     user.Name,
				Email:    user.Email,
				Role:     user.Role,
			},
		})
	})

	// Login endpoint
	authGroup.POST("/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var user models.User
		err := usersCollection.FindOne(context.Background(), bson.M{"username": req.Username}).Decode(&user)
		if err != nil || !utils.CheckPassword(req.Password, user.PasswordHash) {
			utils.RespondWithUnauthorized(c, "Invalid username or password")
			return
		}

		expiresIn, err := time.ParseDuration(cfg.JWTExpiresIn)
		if err != nil {
			expiresIn = 24 * time.Hour
		}

		token, expiresAt, err := auth.IssueToken(user.ID.Hex(), user.Username, user.Role, cfg.JWTSecret, expiresIn)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue token", nil)
			return
		}

		secure := cfg.GinMode == "release"
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie("access_token", token, int(expiresIn.Seconds()), "/", "", secure, true)

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			User: models.UserInfo{
				ID:       user.ID.Hex(),
				Username: user.Username,
				Name:     user.Name,
				Email:    user.Email,
				Role:     user.Role,
			},
		})
	})

	// Logout clears the auth cookie. Tokens themselves stay valid until
	// expiry.
	authGroup.POST("/logout", func(c *gin.Context) {
		secure := cfg.GinMode == "release"
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie("access_token", "", -1, "/", "", secure, true)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	})
}
