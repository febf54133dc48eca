package handlers

import (
	"net/http"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/metrics"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ClientHandler 客户档案处理器
type ClientHandler struct {
	clients *store.EntityService[models.ClientProfile]
}

func NewClientHandler(db *gorm.DB) *ClientHandler {
	return &ClientHandler{
		clients: store.NewEntityService[models.ClientProfile](db),
	}
}

// ListClients returns all client profiles. ?include=Projects eager-loads
// each client's projects, ?active=true filters to active clients.
func (h *ClientHandler) ListClients(c *gin.Context) {
	includes := parseIncludes(c.Query("include"), "Projects")

	var (
		clients []models.ClientProfile
		err     error
	)
	if activeStr := c.Query("active"); activeStr != "" {
		active := activeStr == "true"
		clients, err = h.clients.GetByCondition(func(tx *gorm.DB) *gorm.DB {
			return tx.Where("is_active = ?", active)
		}, includes...)
	} else {
		clients, err = h.clients.GetAll(includes...)
	}
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"clients": clients, "total": len(clients)})
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	client, err := h.clients.GetByID(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respond(c, http.StatusOK, client)
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var client models.ClientProfile
	if err := c.ShouldBindJSON(&client); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	client.ID = 0 // identity is storage-assigned

	created, err := h.clients.Add(&client)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("client", "create")
	respond(c, http.StatusCreated, created)
}

// UpdateClient replaces the whole record with the supplied state.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var client models.ClientProfile
	if err := c.ShouldBindJSON(&client); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	client.ID = id

	if err := h.clients.Update(&client); err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("client", "update")
	respond(c, http.StatusOK, client)
}

// DeleteClient removes the client; its projects (and their work items) go
// with it via the cascade rules.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.clients.Delete(id); err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("client", "delete")
	respond(c, http.StatusOK, gin.H{"deleted": id})
}
