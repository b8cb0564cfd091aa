package models

import (
	"time"
)

// Role is one of the fixed permission classes.
type Role string

const (
	// RolePrincipal is the studio owner role. The spelling follows the
	// designation used on record ("principle architect").
	RolePrincipal Role = "principle"
	RoleEmployee  Role = "employee"
	RoleClient    Role = "client"
	// RoleProcurement is the purchasing agent role.
	RoleProcurement Role = "procurement"
	// RoleAdmin is the platform administrator role.
	RoleAdmin Role = "admin"
)

// AccountType classifies how an account maps to a storage namespace.
type AccountType string

const (
	AccountTypeIndividual     AccountType = "individual"
	AccountTypeCustomBusiness AccountType = "custom_business"
	AccountTypeOrganization   AccountType = "organization"
)

// Account is a record in the tenant-agnostic identity store. Accounts are the
// only entities that live outside a tenant namespace.
type Account struct {
	ID           string      `json:"id" gorm:"type:varchar(64);primaryKey"`
	Email        string      `json:"email" gorm:"uniqueIndex;not null"`
	Username     string      `json:"username" gorm:"not null"`
	PasswordHash string      `json:"-" gorm:"not null"`
	Role         Role        `json:"role" gorm:"type:varchar(20);not null;default:'employee'"`
	AccountType  AccountType `json:"account_type" gorm:"type:varchar(20)"`
	// OrganizationID groups business and organization accounts under a shared
	// namespace. Empty for individual accounts.
	OrganizationID string `json:"organization_id" gorm:"type:varchar(64);index"`
	// ProviderSubject is the subject id assigned by the third-party identity
	// provider for accounts created through the provider sign-in flow.
	ProviderSubject   string     `json:"provider_subject,omitempty" gorm:"type:varchar(128);index"`
	IsPlatformFounder bool       `json:"is_platform_founder" gorm:"default:false"`
	// No gorm column default: an account created inactive must persist
	// inactive. Callers set this explicitly.
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

// Principal is the authenticated identity attached to a request. It is built
// once per request from the account record and never persisted.
type Principal struct {
	ID                string      `json:"id"`
	Username          string      `json:"username"`
	Role              Role        `json:"role"`
	AccountType       AccountType `json:"account_type"`
	OrganizationID    string      `json:"organization_id,omitempty"`
	IsPlatformFounder bool        `json:"is_platform_founder"`
	Active            bool        `json:"active"`
}

func (p *Principal) IsOwner() bool {
	return p.Role == RolePrincipal
}

func (p *Principal) IsPlatformAdmin() bool {
	return p.Role == RoleAdmin
}

// PrincipalFromAccount snapshots the live account fields a request needs.
func PrincipalFromAccount(a *Account) *Principal {
	return &Principal{
		ID:                a.ID,
		Username:          a.Username,
		Role:              a.Role,
		AccountType:       a.AccountType,
		OrganizationID:    a.OrganizationID,
		IsPlatformFounder: a.IsPlatformFounder,
		Active:            a.IsActive,
	}
}
