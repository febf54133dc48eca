package handlers

import (
	"net/http"
	"time"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/metrics"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserHandler 用户处理器（仅管理员可用）
type UserHandler struct {
	users *store.EntityService[models.User]
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{
		users: store.NewEntityService[models.User](db),
	}
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

type UpdateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=6"`
	Role     string `json:"role" binding:"required,oneof=admin user"`
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	var (
		users []models.User
		err   error
	)
	if role := c.Query("role"); role != "" {
		users, err = h.users.GetByCondition(func(tx *gorm.DB) *gorm.DB {
			return tx.Where("role = ?", role)
		})
	} else {
		users, err = h.users.GetAll()
	}
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"users": users, "total": len(users)})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// CreateUser hashes the plaintext password before handing the record to the
// store. Responses never carry the hash.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now(),
	}

	created, err := h.users.Add(&user)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("user", "create")
	respond(c, http.StatusCreated, created)
}

// UpdateUser replaces the whole record. An empty password keeps the stored
// hash; everything else is overwritten.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.users.GetByID(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	hash := existing.PasswordHash
	if req.Password != "" {
		newHash, herr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if herr != nil {
			respondError(c, http.StatusInternalServerError, "Failed to hash password")
			return
		}
		hash = string(newHash)
	}

	user := models.User{
		ID:           id,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		CreatedAt:    existing.CreatedAt,
	}

	if err := h.users.Update(&user); err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("user", "update")
	respond(c, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.users.Delete(id); err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("user", "delete")
	respond(c, http.StatusOK, gin.H{"deleted": id})
}
