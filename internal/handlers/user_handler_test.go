package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUsers_RequireAdmin(t *testing.T) {
	r, db := setupHandlerTest(t)
	seedUser(t, db, "bob", "s3cret-pass", "user")
	token := login(t, r, "bob", "s3cret-pass")

	w := doRequest(t, r, "GET", "/api/v1/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	response := decodeBody(t, w)
	assert.Equal(t, float64(403), response["code"])
}

func TestCreateUser_HashesPassword(t *testing.T) {
	r, db := setupHandlerTest(t)
	seedUser(t, db, "alice", "s3cret-pass", "admin")
	token := login(t, r, "alice", "s3cret-pass")

	w := doRequest(t, r, "POST", "/api/v1/users", token, gin.H{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "changeme1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "bob", created["username"])
	// 默认角色
	assert.Equal(t, "user", created["role"])
	// 响应不携带口令散列
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "changeme1")

	var stored models.User
	require.NoError(t, db.Where("username = ?", "bob").First(&stored).Error)
	assert.NotEqual(t, "changeme1", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2"))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("changeme1")))

	// 新用户可登录
	login(t, r, "bob", "changeme1")
}

func TestCreateUser_Validation(t *testing.T) {
	r, db := setupHandlerTest(t)
	seedUser(t, db, "alice", "s3cret-pass", "admin")
	token := login(t, r, "alice", "s3cret-pass")

	// 口令太短
	w := doRequest(t, r, "POST", "/api/v1/users", token, gin.H{
		"username": "bob", "email": "bob@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 非法角色
	w = doRequest(t, r, "POST", "/api/v1/users", token, gin.H{
		"username": "bob", "email": "bob@example.com", "password": "changeme1", "role": "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 非法邮箱
	w = doRequest(t, r, "POST", "/api/v1/users", token, gin.H{
		"username": "bob", "email": "not-an-email", "password": "changeme1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	r, db := setupHandlerTest(t)
	seedUser(t, db, "alice", "s3cret-pass", "admin")
	token := login(t, r, "alice", "s3cret-pass")

	w := doRequest(t, r, "POST", "/api/v1/users", token, gin.H{
		"username": "alice", "email": "alice2@example.com", "password": "changeme1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateUser_EmptyPasswordKeepsHash(t *testing.T) {
	r, db := setupHandlerTest(t)
	seedUser(t, db, "alice", "s3cret-pass", "admin")
	bob := seedUser(t, db, "bob", "old-pass-1", "user")
	token := login(t, r, "alice", "s3cret-pass")

	w := doRequest(t, r, "PUT", fmt.Sprintf("/api/v1/users/%d", bob.ID), token, gin.H{
		"username": "bob",
		"email":    "bob@example.com",
		"role":     "admin",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.User
	require.NoError(t, db.First(&stored, bob.ID).Error)
	assert.Equal(t, "admin", stored.Role)
	// 空口令保留原散列
	assert.Equal(t, bob.PasswordHash, stored.PasswordHash)

	// 原口令仍然有效, 且新角色生效
	newToken := login(t, r, "bob", "old-pass-1")
	w = doRequest(t, r, "GET", "/api/v1/users", newToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateUser_NewPasswordRehashes(t *testing.T) {
	r, db := setupHandlerTest(t)
	seedUser(t, db, "alice", "s3cret-pass", "admin")
	bob := seedUser(t, db, "bob", "old-pass-1", "user")
	token := login(t, r, "alice", "s3cret-pass")

	w := doRequest(t, r, "PUT", fmt.Sprintf("/api/v1/users/%d", bob.ID), token, gin.H{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "new-pass-1",
		"role":     "user",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.User
	require.NoError(t, db.First(&stored, bob.ID).Error)
	assert.NotEqual(t, bob.PasswordHash, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("new-pass-1")))
}

func TestDeleteUser(t *testing.T) {
	r, db := setupHandlerTest(t)
	seedUser(t, db, "alice", "s3cret-pass", "admin")
	bob := seedUser(t, db, "bob", "old-pass-1", "user")
	token := login(t, r, "alice", "s3cret-pass")

	w := doRequest(t, r, "DELETE", fmt.Sprintf("/api/v1/users/%d", bob.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, "GET", fmt.Sprintf("/api/v1/users/%d", bob.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUsers_RoleFilter(t *testing.T) {
	r, db := setupHandlerTest(t)
	seedUser(t, db, "alice", "s3cret-pass", "admin")
	seedUser(t, db, "bob", "old-pass-1", "user")
	seedUser(t, db, "carol", "old-pass-2", "user")
	token := login(t, r, "alice", "s3cret-pass")

	w := doRequest(t, r, "GET", "/api/v1/users?role=user", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), list["total"])
}
