package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/store"

	"github.com/gin-gonic/gin"
)

// respond writes the standard response envelope.
func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"code":      status,
		"message":   http.StatusText(status),
		"data":      data,
		"timestamp": time.Now(),
	})
}

// respondError writes the standard error envelope.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"code":      status,
		"message":   message,
		"timestamp": time.Now(),
	})
}

// respondStoreError maps store errors onto HTTP statuses. Not-found ids map
// to 404, constraint violations to 409, anything else (connectivity and the
// like) to 500.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrForeignKey):
		respondError(c, http.StatusConflict, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}

// parseID reads the :id path parameter as an unsigned integer.
func parseID(c *gin.Context) (uint, bool) {
	id, err := parseUint(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid ID")
		return 0, false
	}
	return id, true
}
