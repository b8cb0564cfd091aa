package main

import (
	"errors"
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

// CreateAttendanceRequest represents the mark attendance request
type CreateAttendanceRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Date       string `json:"date" binding:"required"`
	Present    *bool  `json:"present" binding:"required"`
}

// handleListAttendance lists attendance records. Employees only see their
// own. Supports optional employee_id and month (YYYY-MM) filters.
func handleListAttendance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		query := db.Scopes(filter.Scope(tenant.KindAttendance))
		if employeeID := c.Query("employee_id"); employeeID != "" {
			query = query.Where("employee_id = ?", employeeID)
		}
		if month := c.Query("month"); month != "" {
			query = query.Where("date LIKE ?", month+"-%")
		}

		var records []models.AttendanceRecord
		if err := query.Order("date DESC").Find(&records).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch attendance")
			return
		}

		utils.OKResponse(c, "Attendance retrieved successfully", records)
	}
}

// handleCreateAttendance marks one employee present or absent for one day.
// Employees may only mark themselves; a second record for the same day is
// rejected.
func handleCreateAttendance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindAttendance, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateAttendanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			utils.BadRequestResponse(c, "Date must be in YYYY-MM-DD format")
			return
		}

		var employee models.EmployeeProfile
		if err := db.Scopes(filter.Scope(tenant.KindEmployees)).
			Where("id = ?", req.EmployeeID).First(&employee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Employee not found")
				return
			}
			utils.RespondError(c, err)
			return
		}

		if err := filter.AuthorizeAttendanceTarget(employee.AccountID); err != nil {
			utils.RespondError(c, err)
			return
		}

		record := models.AttendanceRecord{
			ID:         uuid.NewString(),
			TenantPath: filter.Paths().Path(tenant.KindAttendance),
			EmployeeID: employee.ID,
			AccountID:  employee.AccountID,
			Date:       req.Date,
			Present:    *req.Present,
		}

		if err := db.Create(&record).Error; err != nil {
			utils.ErrorResponse(c, 409, "Attendance already recorded for this day")
			return
		}

		utils.CreatedResponse(c, "Attendance recorded successfully", record)
	}
}

// CreateAdvanceRequest represents the record advance request
type CreateAdvanceRequest struct {
	EmployeeID string  `json:"employee_id" binding:"required"`
	Amount     float64 `json:"amount" binding:"required"`
	Date       string  `json:"date" binding:"required"`
	Period     string  `json:"period"`
	Note       string  `json:"note"`
}

// handleListAdvances lists salary advances, optionally filtered by employee
// or target period.
func handleListAdvances(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		query := db.Scopes(filter.Scope(tenant.KindAdvances))
		if employeeID := c.Query("employee_id"); employeeID != "" {
			query = query.Where("employee_id = ?", employeeID)
		}

		var advances []models.SalaryAdvance
		if err := query.Order("date DESC").Find(&advances).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch advances")
			return
		}

		utils.OKResponse(c, "Advances retrieved successfully", advances)
	}
}

// handleCreateAdvance records an advance payment against a future payroll
// period (owner only).
func handleCreateAdvance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindAdvances, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateAdvanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Amount <= 0 {
			utils.BadRequestResponse(c, "Amount must be positive")
			return
		}
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			utils.BadRequestResponse(c, "Date must be in YYYY-MM-DD format")
			return
		}
		if req.Period != "" {
			if _, err := time.Parse("2006-01", req.Period); err != nil {
				utils.BadRequestResponse(c, "Period must be in YYYY-MM format")
				return
			}
		}

		var employee models.EmployeeProfile
		if err := db.Scopes(filter.Scope(tenant.KindEmployees)).
			Where("id = ?", req.EmployeeID).First(&employee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Employee not found")
				return
			}
			utils.RespondError(c, err)
			return
		}

		advance := models.SalaryAdvance{
			ID:         uuid.NewString(),
			TenantPath: filter.Paths().Path(tenant.KindAdvances),
			EmployeeID: employee.ID,
			Amount:     req.Amount,
			Date:       req.Date,
			Period:     req.Period,
			Note:       req.Note,
		}

		if err := db.Create(&advance).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to record advance")
			return
		}

		utils.CreatedResponse(c, "Advance recorded successfully", advance)
	}
}

// handleDeleteAdvance removes an advance that has not yet been settled into
// a generated salary (owner only).
func handleDeleteAdvance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindAdvances, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		var advance models.SalaryAdvance
		if err := db.Scopes(filter.Scope(tenant.KindAdvances)).
			Where("id = ?", c.Param("id")).First(&advance).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		// Refuse once payroll for the target month exists; the advance is
		// already baked into that salary's deductions.
		var settled int64
		if err := db.Model(&models.Salary{}).
			Where("tenant_path = ? AND employee_id = ? AND period = ?",
				filter.Paths().Path(tenant.KindSalaries), advance.EmployeeID, advance.TargetPeriod()).
			Count(&settled).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete advance")
			return
		}
		if settled > 0 {
			utils.ErrorResponse(c, 409, "Advance already settled in generated payroll")
			return
		}

		if err := db.Delete(&advance).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete advance")
			return
		}

		utils.OKResponse(c, "Advance deleted successfully", nil)
	}
}
