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

// CreateEmployeeRequest represents the create employee request
type CreateEmployeeRequest struct {
	AccountID   string  `json:"account_id" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Phone       string  `json:"phone"`
	Designation string  `json:"designation"`
	BasicSalary float64 `json:"basic_salary"`
	Allowances  float64 `json:"allowances"`
}

// UpdateEmployeeRequest represents the update employee request
type UpdateEmployeeRequest struct {
	Name        *string  `json:"name"`
	Phone       *string  `json:"phone"`
	Designation *string  `json:"designation"`
	BasicSalary *float64 `json:"basic_salary"`
	Allowances  *float64 `json:"allowances"`
}

// handleListEmployees lists the staff the principal may see.
func handleListEmployees(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var employees []models.EmployeeProfile
		if err := db.Scopes(filter.Scope(tenant.KindEmployees)).Order("name").Find(&employees).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch employees")
			return
		}

		utils.OKResponse(c, "Employees retrieved successfully", employees)
	}
}

// handleGetEmployee returns one employee profile. A profile outside the
// principal's visibility reads as not found.
func handleGetEmployee(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var employee models.EmployeeProfile
		if err := db.Scopes(filter.Scope(tenant.KindEmployees)).
			Where("id = ?", c.Param("id")).First(&employee).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.OKResponse(c, "Employee retrieved successfully", employee)
	}
}

// handleCreateEmployee creates a staff record (owner only).
func handleCreateEmployee(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindEmployees, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateEmployeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.BasicSalary < 0 || req.Allowances < 0 {
			utils.BadRequestResponse(c, "Earnings components must be non-negative")
			return
		}

		employee := models.EmployeeProfile{
			ID:          uuid.NewString(),
			TenantPath:  filter.Paths().Path(tenant.KindEmployees),
			AccountID:   req.AccountID,
			Name:        req.Name,
			Phone:       req.Phone,
			Designation: req.Designation,
			BasicSalary: req.BasicSalary,
			Allowances:  req.Allowances,
			JoinedAt:    time.Now(),
		}

		if err := db.Create(&employee).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create employee")
			return
		}

		utils.CreatedResponse(c, "Employee created successfully", employee)
	}
}

// handleUpdateEmployee updates a staff record (owner only).
func handleUpdateEmployee(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindEmployees, access.ActionUpdate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req UpdateEmployeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var employee models.EmployeeProfile
		if err := db.Scopes(filter.Scope(tenant.KindEmployees)).
			Where("id = ?", c.Param("id")).First(&employee).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.Name != nil {
			employee.Name = *req.Name
		}
		if req.Phone != nil {
			employee.Phone = *req.Phone
		}
		if req.Designation != nil {
			employee.Designation = *req.Designation
		}
		if req.BasicSalary != nil {
			if *req.BasicSalary < 0 {
				utils.BadRequestResponse(c, "Basic salary must be non-negative")
				return
			}
			employee.BasicSalary = *req.BasicSalary
		}
		if req.Allowances != nil {
			if *req.Allowances < 0 {
				utils.BadRequestResponse(c, "Allowances must be non-negative")
				return
			}
			employee.Allowances = *req.Allowances
		}

		if err := db.Save(&employee).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update employee")
			return
		}

		utils.OKResponse(c, "Employee updated successfully", employee)
	}
}

// handleDeleteEmployee removes a staff record (owner only).
func handleDeleteEmployee(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindEmployees, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		result := db.Scopes(filter.Scope(tenant.KindEmployees)).
			Where("id = ?", c.Param("id")).Delete(&models.EmployeeProfile{})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete employee")
			return
		}
		if result.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Employee not found")
			return
		}

		utils.OKResponse(c, "Employee deleted successfully", nil)
	}
}

// CreateDocumentRequest represents the create document request
type CreateDocumentRequest struct {
	Title   string `json:"title" binding:"required"`
	FileURL string `json:"file_url"`
}

// handleListEmployeeDocuments lists documents attached to an employee the
// principal may see.
func handleListEmployeeDocuments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var documents []models.EmployeeDocument
		if err := db.Scopes(filter.Scope(tenant.KindDocuments)).
			Where("employee_id = ?", c.Param("id")).
			Order("created_at").Find(&documents).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch documents")
			return
		}

		utils.OKResponse(c, "Documents retrieved successfully", documents)
	}
}

// handleCreateEmployeeDocument attaches a document to an employee (owner only).
func handleCreateEmployeeDocument(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindDocuments, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var employee models.EmployeeProfile
		if err := db.Scopes(filter.Scope(tenant.KindEmployees)).
			Where("id = ?", c.Param("id")).First(&employee).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		document := models.EmployeeDocument{
			ID:         uuid.NewString(),
			TenantPath: filter.Paths().Path(tenant.KindDocuments),
			EmployeeID: employee.ID,
			AccountID:  employee.AccountID,
			Title:      req.Title,
			FileURL:    req.FileURL,
		}

		if err := db.Create(&document).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create document")
			return
		}

		utils.CreatedResponse(c, "Document created successfully", document)
	}
}

// CreateClientRequest represents the create client request
type CreateClientRequest struct {
	AccountID string `json:"account_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// UpdateClientRequest represents the update client request
type UpdateClientRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

// handleListClients lists client records.
func handleListClients(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		var clients []models.ClientProfile
		if err := db.Scopes(filter.Scope(tenant.KindClients)).Order("name").Find(&clients).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch clients")
			return
		}

		utils.OKResponse(c, "Clients retrieved successfully", clients)
	}
}

// handleCreateClient creates a client record (owner only).
func handleCreateClient(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindClients, access.ActionCreate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req CreateClientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		client := models.ClientProfile{
			ID:         uuid.NewString(),
			TenantPath: filter.Paths().Path(tenant.KindClients),
			AccountID:  req.AccountID,
			Name:       req.Name,
			Phone:      req.Phone,
			Address:    req.Address,
		}

		if err := db.Create(&client).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create client")
			return
		}

		utils.CreatedResponse(c, "Client created successfully", client)
	}
}

// handleUpdateClient updates a client record (owner only).
func handleUpdateClient(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindClients, access.ActionUpdate); err != nil {
			utils.RespondError(c, err)
			return
		}

		var req UpdateClientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var client models.ClientProfile
		if err := db.Scopes(filter.Scope(tenant.KindClients)).
			Where("id = ?", c.Param("id")).First(&client).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.Name != nil {
			client.Name = *req.Name
		}
		if req.Phone != nil {
			client.Phone = *req.Phone
		}
		if req.Address != nil {
			client.Address = *req.Address
		}

		if err := db.Save(&client).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update client")
			return
		}

		utils.OKResponse(c, "Client updated successfully", client)
	}
}

// handleDeleteClient removes a client record (owner only).
func handleDeleteClient(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustGetPrincipal(c)
		if !ok {
			return
		}
		filter := access.New(db, principal)

		if err := filter.AuthorizeMutation(tenant.KindClients, access.ActionDelete); err != nil {
			utils.RespondError(c, err)
			return
		}

		result := db.Scopes(filter.Scope(tenant.KindClients)).
			Where("id = ?", c.Param("id")).Delete(&models.ClientProfile{})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete client")
			return
		}
		if result.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Client not found")
			return
		}

		utils.OKResponse(c, "Client deleted successfully", nil)
	}
}
