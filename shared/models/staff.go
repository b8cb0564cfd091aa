package models

import (
	"time"
)

// EmployeeProfile holds the per-tenant staff record for an account with the
// employee role. Compensation components live here; computed payroll lives in
// Salary records.
type EmployeeProfile struct {
	ID         string `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string `json:"-" gorm:"type:varchar(255);not null;index"`
	AccountID  string `json:"account_id" gorm:"type:varchar(64);not null;index"`
	Name       string `json:"name" gorm:"not null"`
	Phone      string `json:"phone"`
	// Designation is the job title (architect, site engineer, drafter ...).
	Designation string    `json:"designation"`
	BasicSalary float64   `json:"basic_salary" gorm:"default:0"`
	Allowances  float64   `json:"allowances" gorm:"default:0"`
	JoinedAt    time.Time `json:"joined_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (EmployeeProfile) TableName() string {
	return "employees"
}

// TotalEarnings is the monthly gross before deductions.
func (e *EmployeeProfile) TotalEarnings() float64 {
	return e.BasicSalary + e.Allowances
}

// ClientProfile holds the per-tenant client record for an account with the
// client role.
type ClientProfile struct {
	ID         string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string    `json:"-" gorm:"type:varchar(255);not null;index"`
	AccountID  string    `json:"account_id" gorm:"type:varchar(64);not null;index"`
	Name       string    `json:"name" gorm:"not null"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ClientProfile) TableName() string {
	return "clients"
}

// EmployeeDocument is a stored document attached to an employee record
// (contracts, id proofs). Only a pointer to external storage is kept here.
type EmployeeDocument struct {
	ID         string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string    `json:"-" gorm:"type:varchar(255);not null;index"`
	EmployeeID string    `json:"employee_id" gorm:"type:varchar(64);not null;index"`
	AccountID  string    `json:"account_id" gorm:"type:varchar(64);not null;index"`
	Title      string    `json:"title" gorm:"not null"`
	FileURL    string    `json:"file_url"`
	CreatedAt  time.Time `json:"created_at"`
}

func (EmployeeDocument) TableName() string {
	return "employee_documents"
}

// TaskStatus tracks a task from creation to approval.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusApproved   TaskStatus = "approved"
)

// IsValid reports whether s is a known task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusApproved:
		return true
	}
	return false
}

// IsTerminal reports whether the task no longer counts as open work.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDone || s == TaskStatusApproved
}

// Task is a unit of work assigned to an employee, optionally tied to a project.
type Task struct {
	ID         string     `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string     `json:"-" gorm:"type:varchar(255);not null;index"`
	ProjectID  string     `json:"project_id,omitempty" gorm:"type:varchar(64);index"`
	AssigneeID string     `json:"assignee_id" gorm:"type:varchar(64);not null;index"`
	Title      string     `json:"title" gorm:"not null"`
	Details    string     `json:"details" gorm:"type:text"`
	Status     TaskStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	Remarks    string     `json:"remarks" gorm:"type:text"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// AttendanceRecord marks one employee present or absent for one calendar day.
// At most one record exists per employee per day.
type AttendanceRecord struct {
	ID         string `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string `json:"-" gorm:"type:varchar(255);not null;index;uniqueIndex:idx_attendance_day,priority:1"`
	EmployeeID string `json:"employee_id" gorm:"type:varchar(64);not null;index;uniqueIndex:idx_attendance_day,priority:2"`
	AccountID  string `json:"account_id" gorm:"type:varchar(64);not null;index"`
	// Date is the calendar day in YYYY-MM-DD form.
	Date      string    `json:"date" gorm:"type:varchar(10);not null;uniqueIndex:idx_attendance_day,priority:3"`
	Present   bool      `json:"present" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}
