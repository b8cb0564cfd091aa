package main

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/access"
	"github.com/atelierhq/studio-backoffice/shared/events"
	"github.com/atelierhq/studio-backoffice/shared/middleware"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/tenant"
	"github.com/atelierhq/studio-backoffice/shared/utils"
)

// CreateProjectRequest represents the create project request
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	ClientName  string `json:"client_name"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// UpdateProjectRequest represents the update project request
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	ClientName  *string `json:"client_name"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
}

// handleListProjects lists the projects visible to the principal. Clients
// only see projects an assignment binds them to.
func handleListProjects(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var projects []models.Project
		if err := db.Scopes(filter.Scope(tenant.KindProjects)).Order("created_at DESC").Find(&projects).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch projects")
			return
		}

		utils.OKResponse(c, "Projects retrieved successfully", projects)
	}
}

// handleGetProject returns a single project with its divisions and items.
func handleGetProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var project models.Project
		if err := db.Scopes(filter.Scope(tenant.KindProjects)).
			Preload("Divisions", func(q *gorm.DB) *gorm.DB { return q.Order("position") }).
			Preload("Divisions.Items").
			Where("id = ?", c.Param("id")).First(&project).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.OKResponse(c, "Project retrieved successfully", project)
	}
}

// handleCreateProject creates a project (owner only).
func handleCreateProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindProjects, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		project := models.Project{
			ID:          uuid.NewString(),
			TenantPath:  filter.Paths().Path(tenant.KindProjects),
			Name:        req.Name,
			ClientName:  req.ClientName,
			Address:     req.Address,
			Description: req.Description,
		}

		if err := db.Create(&project).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create project")
			return
		}

		utils.CreatedResponse(c, "Project created successfully", project)
	}
}

// handleUpdateProject updates a project (owner only).
func handleUpdateProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindProjects, access.ActionUpdate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req UpdateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var project models.Project
		if err := db.Scopes(filter.Scope(tenant.KindProjects)).
			Where("id = ?", c.Param("id")).First(&project).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.Name != nil {
			project.Name = *req.Name
		}
		if req.ClientName != nil {
			project.ClientName = *req.ClientName
		}
		if req.Address != nil {
			project.Address = *req.Address
		}
		if req.Description != nil {
			project.Description = *req.Description
		}

		if err := db.Save(&project).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update project")
			return
		}

		utils.OKResponse(c, "Project updated successfully", project)
	}
}

// handleDeleteProject deletes a project and everything under it: divisions,
// their items, assignments and procurement records, all inside one
// transaction so a failure leaves nothing half-deleted.
func handleDeleteProject(db *gorm.DB, producer *events.Producer) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindProjects, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		paths := filter.Paths()
		projectID := c.Param("id")

		err := db.Transaction(func(tx *gorm.DB) error {
			var project models.Project
			if err := tx.Where("tenant_path = ? AND id = ?",
				paths.Path(tenant.KindProjects), projectID).First(&project).Error; err != nil {
				return err
			}

			if err := tx.Where("tenant_path = ? AND project_id = ?",
				paths.Path(tenant.KindItems), projectID).Delete(&models.Item{}).Error; err != nil {
				return err
			}
			if err := tx.Where("tenant_path = ? AND project_id = ?",
				paths.Path(tenant.KindDivisions), projectID).Delete(&models.Division{}).Error; err != nil {
				return err
			}
			if err := tx.Where("tenant_path = ? AND project_id = ?",
				paths.Path(tenant.KindAssignments), projectID).Delete(&models.Assignment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("tenant_path = ? AND project_id = ?",
				paths.Path(tenant.KindProcurement), projectID).Delete(&models.ProcurementItem{}).Error; err != nil {
				return err
			}

			return tx.Delete(&project).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Project not found")
				return
			}
			utils.InternalServerErrorResponse(c, "Failed to delete project")
			return
		}

		producer.Publish(events.TypeProjectDeleted, paths.Root(), principal.ID, map[string]interface{}{
			"project_id": projectID,
		})

		utils.OKResponse(c, "Project deleted successfully", nil)
	}
}

// CreateDivisionRequest represents the create division request
type CreateDivisionRequest struct {
	Name     string `json:"name" binding:"required"`
	Position int    `json:"position"`
}

// UpdateDivisionRequest represents the update division request
type UpdateDivisionRequest struct {
	Name     *string `json:"name"`
	Position *int    `json:"position"`
}

// handleListDivisions lists a project's divisions in order.
func handleListDivisions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var divisions []models.Division
		if err := db.Scopes(filter.Scope(tenant.KindDivisions)).
			Where("project_id = ?", c.Param("id")).
			Order("position").Find(&divisions).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch divisions")
			return
		}

		utils.OKResponse(c, "Divisions retrieved successfully", divisions)
	}
}

// handleCreateDivision adds a division to a project (owner only).
func handleCreateDivision(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindDivisions, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateDivisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var project models.Project
		if err := db.Scopes(filter.Scope(tenant.KindProjects)).
			Where("id = ?", c.Param("id")).First(&project).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		division := models.Division{
			ID:         uuid.NewString(),
			TenantPath: filter.Paths().Path(tenant.KindDivisions),
			ProjectID:  project.ID,
			Name:       req.Name,
			Position:   req.Position,
		}

		if err := db.Create(&division).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create division")
			return
		}

		utils.CreatedResponse(c, "Division created successfully", division)
	}
}

// handleUpdateDivision updates a division (owner only).
func handleUpdateDivision(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindDivisions, access.ActionUpdate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req UpdateDivisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var division models.Division
		if err := db.Scopes(filter.Scope(tenant.KindDivisions)).
			Where("id = ?", c.Param("id")).First(&division).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.Name != nil {
			division.Name = *req.Name
		}
		if req.Position != nil {
			division.Position = *req.Position
		}

		if err := db.Save(&division).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update division")
			return
		}

		utils.OKResponse(c, "Division updated successfully", division)
	}
}

// handleDeleteDivision deletes a division and its items in one transaction.
func handleDeleteDivision(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindDivisions, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		paths := filter.Paths()
		divisionID := c.Param("id")

		err := db.Transaction(func(tx *gorm.DB) error {
			var division models.Division
			if err := tx.Where("tenant_path = ? AND id = ?",
				paths.Path(tenant.KindDivisions), divisionID).First(&division).Error; err != nil {
				return err
			}

			if err := tx.Where("tenant_path = ? AND division_id = ?",
				paths.Path(tenant.KindItems), divisionID).Delete(&models.Item{}).Error; err != nil {
				return err
			}

			return tx.Delete(&division).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Division not found")
				return
			}
			utils.InternalServerErrorResponse(c, "Failed to delete division")
			return
		}

		utils.OKResponse(c, "Division deleted successfully", nil)
	}
}

// CreateItemRequest represents the create item request
type CreateItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity"`
	UnitRate float64 `json:"unit_rate"`
	Priority int     `json:"priority"`
}

// UpdateItemRequest represents the update item request
type UpdateItemRequest struct {
	Name     *string            `json:"name"`
	Quantity *float64           `json:"quantity"`
	UnitRate *float64           `json:"unit_rate"`
	Priority *int               `json:"priority"`
	Status   *models.ItemStatus `json:"status"`
}

// handleListItems lists a division's items.
func handleListItems(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var items []models.Item
		if err := db.Scopes(filter.Scope(tenant.KindItems)).
			Where("division_id = ?", c.Param("id")).
			Order("priority").Find(&items).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch items")
			return
		}

		utils.OKResponse(c, "Items retrieved successfully", items)
	}
}

// handleCreateItem adds an item to a division (owner only).
func handleCreateItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindItems, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Quantity < 0 || req.UnitRate < 0 {
			utils.BadRequestResponse(c, "Quantity and unit rate must be non-negative")
			return
		}

		var division models.Division
		if err := db.Scopes(filter.Scope(tenant.KindDivisions)).
			Where("id = ?", c.Param("id")).First(&division).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		item := models.Item{
			ID:         uuid.NewString(),
			TenantPath: filter.Paths().Path(tenant.KindItems),
			ProjectID:  division.ProjectID,
			DivisionID: division.ID,
			Name:       req.Name,
			Quantity:   req.Quantity,
			UnitRate:   req.UnitRate,
			Priority:   req.Priority,
			Status:     models.ItemStatusNotStarted,
		}

		if err := db.Create(&item).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create item")
			return
		}

		utils.CreatedResponse(c, "Item created successfully", item)
	}
}

// handleUpdateItem updates an item; status changes must follow the fixed
// progression.
func handleUpdateItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindItems, access.ActionUpdate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req UpdateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var item models.Item
		if err := db.Scopes(filter.Scope(tenant.KindItems)).
			Where("id = ?", c.Param("id")).First(&item).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.Name != nil {
			item.Name = *req.Name
		}
		if req.Quantity != nil {
			if *req.Quantity < 0 {
				utils.BadRequestResponse(c, "Quantity must be non-negative")
				return
			}
			item.Quantity = *req.Quantity
		}
		if req.UnitRate != nil {
			if *req.UnitRate < 0 {
				utils.BadRequestResponse(c, "Unit rate must be non-negative")
				return
			}
			item.UnitRate = *req.UnitRate
		}
		if req.Priority != nil {
			item.Priority = *req.Priority
		}
		if req.Status != nil {
			if !req.Status.IsValid() || !item.Status.CanTransitionTo(*req.Status) {
				utils.BadRequestResponse(c, "Invalid status transition")
				return
			}
			item.Status = *req.Status
		}

		if err := db.Save(&item).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update item")
			return
		}

		utils.OKResponse(c, "Item updated successfully", item)
	}
}

// handleDeleteItem removes an item (owner only).
func handleDeleteItem(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindItems, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		result := db.Scopes(filter.Scope(tenant.KindItems)).
			Where("id = ?", c.Param("id")).Delete(&models.Item{})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete item")
			return
		}
		if result.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Item not found")
			return
		}

		utils.OKResponse(c, "Item deleted successfully", nil)
	}
}

// CreateAssignmentRequest represents the create assignment request
type CreateAssignmentRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	AccountID string `json:"account_id" binding:"required"`
}

// handleListAssignments lists the namespace's assignments (owner only).
func handleListAssignments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var assignments []models.Assignment
		if err := db.Scopes(filter.Scope(tenant.KindAssignments)).
			Order("created_at").Find(&assignments).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch assignments")
			return
		}

		utils.OKResponse(c, "Assignments retrieved successfully", assignments)
	}
}

// handleCreateAssignment binds an account to a project (owner only).
func handleCreateAssignment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindAssignments, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateAssignmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var project models.Project
		if err := db.Scopes(filter.Scope(tenant.KindProjects)).
			Where("id = ?", req.ProjectID).First(&project).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		assignment := models.Assignment{
			ID:         uuid.NewString(),
			TenantPath: filter.Paths().Path(tenant.KindAssignments),
			ProjectID:  req.ProjectID,
			AccountID:  req.AccountID,
		}

		if err := db.Create(&assignment).Error; err != nil {
			utils.ErrorResponse(c, 409, "Assignment already exists")
			return
		}

		utils.CreatedResponse(c, "Assignment created successfully", assignment)
	}
}

// handleDeleteAssignment unbinds an account from a project (owner only).
func handleDeleteAssignment(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindAssignments, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		result := db.Scopes(filter.Scope(tenant.KindAssignments)).
			Where("id = ?", c.Param("id")).Delete(&models.Assignment{})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete assignment")
			return
		}
		if result.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Assignment not found")
			return
		}

		utils.OKResponse(c, "Assignment deleted successfully", nil)
	}
}
