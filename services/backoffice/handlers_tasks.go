package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/access"
	"github.com/atelierhq/studio-backoffice/shared/middleware"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/tenant"
	"github.com/atelierhq/studio-backoffice/shared/utils"
)

// CreateTaskRequest represents the create task request
type CreateTaskRequest struct {
	ProjectID  string     `json:"project_id"`
	AssigneeID string     `json:"assignee_id" binding:"required"`
	Title      string     `json:"title" binding:"required"`
	Details    string     `json:"details"`
	DueDate    *time.Time `json:"due_date"`
}

// UpdateTaskRequest represents the update task request
type UpdateTaskRequest struct {
	Title   *string            `json:"title"`
	Details *string            `json:"details"`
	Status  *models.TaskStatus `json:"status"`
	Remarks *string            `json:"remarks"`
	DueDate *time.Time         `json:"due_date"`
}

// handleListTasks lists tasks. Employees only see tasks assigned to them.
func handleListTasks(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		query := db.Scopes(filter.Scope(tenant.KindTasks))
		if projectID := c.Query("project_id"); projectID != "" {
			query = query.Where("project_id = ?", projectID)
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var tasks []models.Task
		if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch tasks")
			return
		}

		utils.OKResponse(c, "Tasks retrieved successfully", tasks)
	}
}

// handleGetTask returns one task.
func handleGetTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var task models.Task
		if err := db.Scopes(filter.Scope(tenant.KindTasks)).
			Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.OKResponse(c, "Task retrieved successfully", task)
	}
}

// handleCreateTask creates a task (owner only).
func handleCreateTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindTasks, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.ProjectID != "" {
			var project models.Project
			if err := db.Scopes(filter.Scope(tenant.KindProjects)).
				Where("id = ?", req.ProjectID).First(&project).Error; err != nil {
				utils.RespondError(c, err)
				return
			}
		}

		task := models.Task{
			ID:         uuid.NewString(),
			TenantPath: filter.Paths().Path(tenant.KindTasks),
			ProjectID:  req.ProjectID,
			AssigneeID: req.AssigneeID,
			Title:      req.Title,
			Details:    req.Details,
			Status:     models.TaskStatusPending,
			DueDate:    req.DueDate,
		}

		if err := db.Create(&task).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create task")
			return
		}

		utils.CreatedResponse(c, "Task created successfully", task)
	}
}

// handleUpdateTask updates a task. Owners may change anything; the assigned
// employee may move status short of approval and add remarks.
func handleUpdateTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindTasks, access.ActionUpdate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req UpdateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var task models.Task
		if err := db.Scopes(filter.Scope(tenant.KindTasks)).
			Where("id = ?", c.Param("id")).First(&task).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.Status != nil {
			if !req.Status.IsValid() {
				utils.BadRequestResponse(c, "Invalid task status")
				return
			}
			if err := filter.AuthorizeTaskUpdate(&task, *req.Status); err != nil {
				utils.RespondError(c, err)
				return
			}
			task.Status = *req.Status
		}

		isOwner := principal.IsOwner() || principal.IsPlatformAdmin()
		if req.Title != nil && isOwner {
			task.Title = *req.Title
		}
		if req.Details != nil && isOwner {
			task.Details = *req.Details
		}
		if req.DueDate != nil && isOwner {
			task.DueDate = req.DueDate
		}
		if req.Remarks != nil {
			task.Remarks = *req.Remarks
		}

		if err := db.Save(&task).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update task")
			return
		}

		utils.OKResponse(c, "Task updated successfully", task)
	}
}

// handleDeleteTask removes a task (owner only).
func handleDeleteTask(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindTasks, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		result := db.Scopes(filter.Scope(tenant.KindTasks)).
			Where("id = ?", c.Param("id")).Delete(&models.Task{})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete task")
			return
		}
		if result.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Task not found")
			return
		}

		utils.OKResponse(c, "Task deleted successfully", nil)
	}
}
