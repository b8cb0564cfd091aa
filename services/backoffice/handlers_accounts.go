package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/utils"
)

// CreateAccountRequest represents the create account request
type CreateAccountRequest struct {
	Email          string             `json:"email" binding:"required,email"`
	Username       string             `json:"username" binding:"required"`
	Password       string             `json:"password" binding:"required,min=8"`
	Role           models.Role        `json:"role" binding:"required"`
	AccountType    models.AccountType `json:"account_type"`
	OrganizationID string             `json:"organization_id"`
}

// UpdateAccountRequest represents the update account request
type UpdateAccountRequest struct {
	Username       *string             `json:"username"`
	Role           *models.Role        `json:"role"`
	AccountType    *models.AccountType `json:"account_type"`
	OrganizationID *string             `json:"organization_id"`
	IsActive       *bool               `json:"is_active"`
}

func validRole(role models.Role) bool {
	switch role {
	case models.RolePrincipal, models.RoleEmployee, models.RoleClient,
		models.RoleProcurement, models.RoleAdmin:
		return true
	}
	return false
}

// handleListAccounts returns every account in the identity store.
func handleListAccounts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var accounts []models.Account
		if err := db.Order("created_at").Find(&accounts).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch accounts")
			return
		}

		utils.OKResponse(c, "Accounts retrieved successfully", accounts)
	}
}

// handleGetAccount returns a single account.
func handleGetAccount(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var account models.Account
		if err := db.Where("id = ?", c.Param("id")).First(&account).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		utils.OKResponse(c, "Account retrieved successfully", account)
	}
}

// handleCreateAccount creates an account in the identity store.
func handleCreateAccount(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if !validRole(req.Role) {
			utils.BadRequestResponse(c, "Unknown role")
			return
		}

		var existing models.Account
		if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
			utils.ErrorResponse(c, 409, "Email already registered")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to hash password")
			return
		}

		account := models.Account{
			ID:             uuid.NewString(),
			Email:          req.Email,
			Username:       req.Username,
			PasswordHash:   string(hash),
			Role:           req.Role,
			AccountType:    req.AccountType,
			OrganizationID: req.OrganizationID,
			IsActive:       true,
			CreatedAt:      time.Now(),
		}

		if err := db.Create(&account).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create account")
			return
		}

		utils.CreatedResponse(c, "Account created successfully", account)
	}
}

// handleUpdateAccount updates mutable account fields.
func handleUpdateAccount(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var account models.Account
		if err := db.Where("id = ?", c.Param("id")).First(&account).Error; err != nil {
			utils.RespondError(c, err)
			return
		}

		if req.Username != nil {
			account.Username = *req.Username
		}
		if req.Role != nil {
			if !validRole(*req.Role) {
				utils.BadRequestResponse(c, "Unknown role")
				return
			}
			account.Role = *req.Role
		}
		if req.AccountType != nil {
			account.AccountType = *req.AccountType
		}
		if req.OrganizationID != nil {
			account.OrganizationID = *req.OrganizationID
		}
		if req.IsActive != nil {
			account.IsActive = *req.IsActive
		}

		if err := db.Save(&account).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update account")
			return
		}

		utils.OKResponse(c, "Account updated successfully", account)
	}
}

// handleDeleteAccount removes an account from the identity store.
func handleDeleteAccount(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := db.Where("id = ?", c.Param("id")).Delete(&models.Account{})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete account")
			return
		}
		if result.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Account not found")
			return
		}

		utils.OKResponse(c, "Account deleted successfully", nil)
	}
}
