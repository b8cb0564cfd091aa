package main

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/access"
	"github.com/atelierhq/studio-backoffice/shared/middleware"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/payroll"
	"github.com/atelierhq/studio-backoffice/shared/tenant"
	"github.com/atelierhq/studio-backoffice/shared/utils"
)

// GenerateSalaryRequest represents the generate salary request
type GenerateSalaryRequest struct {
	EmployeeID string `json:"employee_id" binding:"required"`
	Period     string `json:"period" binding:"required"`
}

// RecordPaymentRequest represents the record payment request
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Date   string  `json:"date" binding:"required"`
}

// handleListSalaries lists salary records. Employees only see their own.
func handleListSalaries(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		query := db.Scopes(filter.Scope(tenant.KindSalaries))
		if employeeID := c.Query("employee_id"); employeeID != "" {
			query = query.Where("employee_id = ?", employeeID)
		}
		if period := c.Query("period"); period != "" {
			query = query.Where("period = ?", period)
		}

		var salaries []models.Salary
		if err := query.Order("period DESC").Find(&salaries).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch salaries")
			return
		}

		utils.OKResponse(c, "Salaries retrieved successfully", salaries)
	}
}

// handleGetSalary returns one salary record with its payment ledger.
func handleGetSalary(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var salary models.Salary
		if err := db.Scopes(filter.Scope(tenant.KindSalaries)).
			Preload("Payments", func(q *gorm.DB) *gorm.DB { return q.Order("created_at") }).
			Where("id = ?", c.Param("id")).First(&salary).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.OKResponse(c, "Salary retrieved successfully", salary)
	}
}

// handleGenerateSalary computes and stores the salary for one employee and
// one month. Generating the same month twice is rejected.
func handleGenerateSalary(engine *payroll.Engine, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var req GenerateSalaryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		salary, err := engine.Generate(filter.Paths(), principal.ID, req.EmployeeID, req.Period)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.CreatedResponse(c, "Salary generated successfully", salary)
	}
}

// handleRecordPayment appends a payment to a salary's ledger and refreshes
// its derived paid totals.
func handleRecordPayment(engine *payroll.Engine, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var req RecordPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		salary, err := engine.RecordPayment(filter.Paths(), principal.ID, c.Param("id"), req.Amount, req.Date)
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.OKResponse(c, "Payment recorded successfully", salary)
	}
}

// handleHoldSalary flags a salary as held.
func handleHoldSalary(engine *payroll.Engine, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		salary, err := engine.Hold(filter.Paths(), principal.ID, c.Param("id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.OKResponse(c, "Salary held successfully", salary)
	}
}

// handleReleaseSalary clears a salary's hold flag.
func handleReleaseSalary(engine *payroll.Engine, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		salary, err := engine.Release(filter.Paths(), principal.ID, c.Param("id"))
		if err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.OKResponse(c, "Salary released successfully", salary)
	}
}
