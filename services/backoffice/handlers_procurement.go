package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/access"
	"github.com/atelierhq/studio-backoffice/shared/middleware"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/tenant"
	"github.com/atelierhq/studio-backoffice/shared/utils"
)

// CreateProcurementRequest represents the create procurement record request
type CreateProcurementRequest struct {
	ProjectID      string  `json:"project_id" binding:"required"`
	ItemID         string  `json:"item_id"`
	Vendor         string  `json:"vendor"`
	Name           string  `json:"name" binding:"required"`
	Quantity       float64 `json:"quantity"`
	Cost           float64 `json:"cost"`
	InternalMarkup float64 `json:"internal_markup"`
}

// UpdateProcurementRequest represents the update procurement record request
type UpdateProcurementRequest struct {
	Vendor         *string            `json:"vendor"`
	Name           *string            `json:"name"`
	Quantity       *float64           `json:"quantity"`
	Cost           *float64           `json:"cost"`
	InternalMarkup *float64           `json:"internal_markup"`
	Status         *models.ItemStatus `json:"status"`
}

// handleListProcurement lists procurement records. Client responses have the
// internal markup zeroed out.
func handleListProcurement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		query := db.Scopes(filter.Scope(tenant.KindProcurement))
		if projectID := c.Query("project_id"); projectID != "" {
			query = query.Where("project_id = ?", projectID)
		}

		var items []models.ProcurementItem
		if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch procurement records")
			return
		}

		utils.OKResponse(c, "Procurement records retrieved successfully", filter.SanitizeProcurement(items))
	}
}

// handleGetProcurement returns one procurement record, sanitized for clients.
func handleGetProcurement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var item models.ProcurementItem
		if err := db.Scopes(filter.Scope(tenant.KindProcurement)).
			Where("id = ?", c.Param("id")).First(&item).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		sanitized := filter.SanitizeProcurement([]models.ProcurementItem{item})
		utils.OKResponse(c, "Procurement record retrieved successfully", sanitized[0])
	}
}

// handleCreateProcurement creates a procurement record (owner or procurement
// agent).
func handleCreateProcurement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindProcurement, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateProcurementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Quantity < 0 || req.Cost < 0 || req.InternalMarkup < 0 {
			utils.BadRequestResponse(c, "Quantity, cost and markup must be non-negative")
			return
		}

		var project models.Project
		if err := db.Scopes(filter.Scope(tenant.KindProjects)).
			Where("id = ?", req.ProjectID).First(&project).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.ItemID != "" {
			var item models.Item
			if err := db.Scopes(filter.Scope(tenant.KindItems)).
				Where("id = ? AND project_id = ?", req.ItemID, project.ID).First(&item).Error; err != nil {
				utils.RespondError(c, err)
				return
			}
		}

		record := models.ProcurementItem{
			ID:             uuid.NewString(),
			TenantPath:     filter.Paths().Path(tenant.KindProcurement),
			ProjectID:      project.ID,
			ItemID:         req.ItemID,
			Vendor:         req.Vendor,
			Name:           req.Name,
			Quantity:       req.Quantity,
			Cost:           req.Cost,
			InternalMarkup: req.InternalMarkup,
			Status:         models.ItemStatusNotStarted,
		}

		if err := db.Create(&record).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create procurement record")
			return
		}

		utils.CreatedResponse(c, "Procurement record created successfully", record)
	}
}

// handleUpdateProcurement updates a procurement record (owner or procurement
// agent). Status follows the same forward-only progression as items.
func handleUpdateProcurement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindProcurement, access.ActionUpdate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req UpdateProcurementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var record models.ProcurementItem
		if err := db.Scopes(filter.Scope(tenant.KindProcurement)).
			Where("id = ?", c.Param("id")).First(&record).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.Vendor != nil {
			record.Vendor = *req.Vendor
		}
		if req.Name != nil {
			record.Name = *req.Name
		}
		if req.Quantity != nil {
			if *req.Quantity < 0 {
				utils.BadRequestResponse(c, "Quantity must be non-negative")
				return
			}
			record.Quantity = *req.Quantity
		}
		if req.Cost != nil {
			if *req.Cost < 0 {
				utils.BadRequestResponse(c, "Cost must be non-negative")
				return
			}
			record.Cost = *req.Cost
		}
		if req.InternalMarkup != nil {
			if *req.InternalMarkup < 0 {
				utils.BadRequestResponse(c, "Markup must be non-negative")
				return
			}
			record.InternalMarkup = *req.InternalMarkup
		}
		if req.Status != nil {
			if !req.Status.IsValid() || !record.Status.CanTransitionTo(*req.Status) {
				utils.BadRequestResponse(c, "Invalid status transition")
				return
			}
			record.Status = *req.Status
		}

		if err := db.Save(&record).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update procurement record")
			return
		}

		utils.OKResponse(c, "Procurement record updated successfully", record)
	}
}

// handleDeleteProcurement removes a procurement record.
func handleDeleteProcurement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindProcurement, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		result := db.Scopes(filter.Scope(tenant.KindProcurement)).
			Where("id = ?", c.Param("id")).Delete(&models.ProcurementItem{})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete procurement record")
			return
		}
		if result.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Procurement record not found")
			return
		}

		utils.OKResponse(c, "Procurement record deleted successfully", nil)
	}
}
