package handlers

import (
	"net/http"

	"github.com/Akbar-telliant/ScrumTaskManager/internal/models"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/observability/metrics"
	"github.com/Akbar-telliant/ScrumTaskManager/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	projects *store.EntityService[models.Project]
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{
		projects: store.NewEntityService[models.Project](db),
	}
}

// ListProjects returns projects, optionally filtered by ?client_id= and
// ?active=, with ?include=Client,Items eager loading.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	includes := parseIncludes(c.Query("include"), "Client", "Items")

	clientIDStr := c.Query("client_id")
	activeStr := c.Query("active")

	var (
		projects []models.Project
		err      error
	)
	if clientIDStr == "" && activeStr == "" {
		projects, err = h.projects.GetAll(includes...)
	} else {
		projects, err = h.projects.GetByCondition(func(tx *gorm.DB) *gorm.DB {
			if clientIDStr != "" {
				if clientID, perr := parseUint(clientIDStr); perr == nil {
					tx = tx.Where("client_id = ?", clientID)
				}
			}
			if activeStr != "" {
				tx = tx.Where("is_active = ?", activeStr == "true")
			}
			return tx
		}, includes...)
	}
	if err != nil {
		respondStoreError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"projects": projects, "total": len(projects)})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	project, err := h.projects.GetByID(id)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	respond(c, http.StatusOK, project)
}

// CreateProject inserts a project. A client_id referencing no stored client
// is rejected by the foreign key constraint.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	project.ID = 0
	project.Client = nil
	project.Items = nil

	created, err := h.projects.Add(&project)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("project", "create")
	respond(c, http.StatusCreated, created)
}

// UpdateProject replaces the whole record with the supplied state.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	project.ID = id
	project.Client = nil
	project.Items = nil

	if err := h.projects.Update(&project); err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("project", "update")
	respond(c, http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.projects.Delete(id); err != nil {
		respondStoreError(c, err)
		return
	}
	metrics.IncEntityOperation("project", "delete")
	respond(c, http.StatusOK, gin.H{"deleted": id})
}
