package handlers

import (
	"net/http"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/metrics"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ScrumItemHandler 工作项处理器
type ScrumItemHandler struct {
	items *store.EntityService[models.ScrumItem]
}

func NewScrumItemHandler(db *gorm.DB) *ScrumItemHandler {
	return &ScrumItemHandler{
		items: store.NewEntityService[models.ScrumItem](db),
	}
}

// ListScrumItems returns work items filtered by ?project_id=, ?status=,
// ?assignee_id= and ?sprint=, with ?include=Project,Assignee eager loading.
func (h *ScrumItemHandler) ListScrumItems(c *gin.Context) {
	includes := parseIncludes(c.Query("include"), "Project", "Assignee")

	projectIDStr := c.Query("project_id")
	status := c.Query("status")
	assigneeIDStr := c.Query("assignee_id")
	sprintStr := c.Query("sprint")

	var (
		items []models.ScrumItem
		err   error
	)
	if projectIDStr == "" && status == "" && assigneeIDStr == "" && sprintStr == "" {
		items, err = h.items.GetAll(includes...)
	} else {
		items, err = h.items.GetByCondition(func(tx *gorm.DB) *gorm.DB {
			if projectIDStr != "" {
				if projectID, perr := parseUint(projectIDStr); perr == nil {
					tx = tx.Where("project_id = ?", projectID)
				}
			}
			if status != "" {
				tx = tx.Where("status = ?", status)
			}
			if assigneeIDStr != "" {
				if assigneeID, perr := parseUint(assigneeIDStr); perr == nil {
					tx = tx.Where("assignee_id = ?", assigneeID)
				}
			}
			if sprintStr != "" {
				if sprint, perr := parseUint(sprintStr); perr == nil {
					tx = tx.Where("sprint_number = ?", sprint)
				}
			}
			return tx
		}, includes...)
	}
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *ScrumItemHandler) GetScrumItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.items.GetByID(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respond(c, http.StatusOK, item)
}

func (h *ScrumItemHandler) CreateScrumItem(c *gin.Context) {
	var item models.ScrumItem
	if err := c.ShouldBindJSON(&item); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	item.ID = 0
	item.Project = nil
	item.Assignee = nil

	created, err := h.items.Add(&item)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("scrum_item", "create")
	respond(c, http.StatusCreated, created)
}

// UpdateScrumItem replaces the whole record with the supplied state.
func (h *ScrumItemHandler) UpdateScrumItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var item models.ScrumItem
	if err := c.ShouldBindJSON(&item); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	item.ID = id
	item.Project = nil
	item.Assignee = nil

	if err := h.items.Update(&item); err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("scrum_item", "update")
	respond(c, http.StatusOK, item)
}

func (h *ScrumItemHandler) DeleteScrumItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.items.Delete(id); err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("scrum_item", "delete")
	respond(c, http.StatusOK, gin.H{"deleted": id})
}
