package models

import (
	"time"
)

// SalaryAdvance is an out-of-band payment handed to an employee before
// payroll, deducted from the salary of its target period.
type SalaryAdvance struct {
	ID         string  `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string  `json:"-" gorm:"type:varchar(255);not null;index"`
	EmployeeID string  `json:"employee_id" gorm:"type:varchar(64);not null;index"`
	Amount     float64 `json:"amount" gorm:"not null"`
	// Date is the day the advance was handed out, YYYY-MM-DD.
	Date string `json:"date" gorm:"type:varchar(10);not null"`
	// Period optionally pins the advance to a payroll month (YYYY-MM). When
	// empty the month is taken from Date.
	Period    string    `json:"period,omitempty" gorm:"type:varchar(7);index"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

func (SalaryAdvance) TableName() string {
	return "salary_advances"
}

// TargetPeriod returns the payroll month the advance counts against.
func (a *SalaryAdvance) TargetPeriod() string {
	if a.Period != "" {
		return a.Period
	}
	if len(a.Date) >= 7 {
		return a.Date[:7]
	}
	return ""
}

// Salary is the computed payroll record for one employee and one calendar
// month. At most one exists per (tenant, employee, period); the store enforces
// this with a unique index. Created once by the payroll engine, then mutated
// only by payment and hold/release operations, never recomputed in place.
type Salary struct {
	ID         string `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string `json:"-" gorm:"type:varchar(255);not null;index;uniqueIndex:idx_salary_period,priority:1"`
	EmployeeID string `json:"employee_id" gorm:"type:varchar(64);not null;index;uniqueIndex:idx_salary_period,priority:2"`
	// Period is the payroll month, YYYY-MM.
	Period string `json:"period" gorm:"type:varchar(7);not null;uniqueIndex:idx_salary_period,priority:3"`

	BasicSalary   float64 `json:"basic_salary"`
	Allowances    float64 `json:"allowances"`
	TotalEarnings float64 `json:"total_earnings"`

	WorkingDays int     `json:"working_days"`
	PresentDays int     `json:"present_days"`
	PerDayRate  float64 `json:"per_day_rate"`

	AbsenceDeduction float64 `json:"absence_deduction"`
	AdvanceDeduction float64 `json:"advance_deduction"`
	OtherDeductions  float64 `json:"other_deductions"`
	TotalDeductions  float64 `json:"total_deductions"`
	NetSalary        float64 `json:"net_salary"`

	PaidAmount      float64    `json:"paid_amount" gorm:"default:0"`
	RemainingAmount float64    `json:"remaining_amount"`
	IsPaid          bool       `json:"is_paid" gorm:"default:false"`
	IsHeld          bool       `json:"is_held" gorm:"default:false"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Payments []SalaryPayment `json:"payments,omitempty" gorm:"foreignKey:SalaryID"`
}

func (Salary) TableName() string {
	return "salaries"
}

// SalaryPayment is an append-only ledger entry against a salary. The salary's
// paid amount, remaining amount and paid flag are derived from the sum of its
// ledger entries and are never edited independently.
type SalaryPayment struct {
	ID         string  `json:"id" gorm:"type:varchar(64);primaryKey"`
	TenantPath string  `json:"-" gorm:"type:varchar(255);not null;index"`
	SalaryID   string  `json:"salary_id" gorm:"type:varchar(64);not null;index"`
	Amount     float64 `json:"amount" gorm:"not null"`
	// Date is the value date of the payment, YYYY-MM-DD.
	Date      string    `json:"date" gorm:"type:varchar(10);not null"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

func (SalaryPayment) TableName() string {
	return "salary_payments"
}
