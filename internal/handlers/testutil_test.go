package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/auth"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/config"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/database"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/middleware"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupHandlerTest builds a router with the real middleware chain over an
// in-memory database.
func setupHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, database.Migrate(db))

	sessions := session.NewStore(time.Hour)
	t.Cleanup(sessions.Close)
	provider := auth.NewStateProvider(sessions)

	cfg := config.AuthConfig{JWTSecret: "test-secret", SessionTTLHours: 1}

	r := gin.New()
	authHandler := NewAuthHandler(db, provider, cfg)

	api := r.Group("/api/v1")
	api.POST("/auth/login", authHandler.Login)
	api.GET("/auth/state", authHandler.State)

	secured := api.Group("")
	secured.Use(middleware.SessionAuth(provider, cfg.JWTSecret))
	{
		secured.POST("/auth/logout", authHandler.Logout)
		secured.GET("/auth/me", authHandler.Me)

		clientHandler := NewClientHandler(db)
		clients := secured.Group("/clients")
		{
			clients.GET("", clientHandler.ListClients)
			clients.GET("/:id", clientHandler.GetClient)
			clients.POST("", clientHandler.CreateClient)
			clients.PUT("/:id", clientHandler.UpdateClient)
			clients.DELETE("/:id", clientHandler.DeleteClient)
		}

		projectHandler := NewProjectHandler(db)
		projects := secured.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/:id", projectHandler.GetProject)
			projects.POST("", projectHandler.CreateProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
		}

		itemHandler := NewScrumItemHandler(db)
		items := secured.Group("/scrum-items")
		{
			items.GET("", itemHandler.ListScrumItems)
			items.GET("/:id", itemHandler.GetScrumItem)
			items.POST("", itemHandler.CreateScrumItem)
			items.PUT("/:id", itemHandler.UpdateScrumItem)
			items.DELETE("/:id", itemHandler.DeleteScrumItem)
		}

		userHandler := NewUserHandler(db)
		users := secured.Group("/users")
		users.Use(middleware.RequireAdmin())
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/:id", userHandler.GetUser)
			users.POST("", userHandler.CreateUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	return r, db
}

// seedUser inserts a user with a bcrypt-hashed password directly.
func seedUser(t *testing.T, db *gorm.DB, username, password, role string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// doRequest performs a JSON request, optionally with a bearer token.
func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// login authenticates and returns the session token.
func login(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()

	w := doRequest(t, r, "POST", "/api/v1/auth/login", "", gin.H{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)
	token, ok := data["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

// decodeBody unmarshals the response envelope.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}
