// Package payroll computes monthly compensation records from attendance,
// advances and task status, and maintains a payment ledger against them. A
// salary is generated at most once per employee and month; payments append to
// a ledger from which the paid totals are derived, never edited directly.
package payroll

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/apperrors"
	"github.com/atelierhq/studio-backoffice/shared/events"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/tenant"
)

// WeeklyHoliday is the studio's fixed weekly off day.
const WeeklyHoliday = time.Sunday

// Engine generates salaries and maintains their payment ledgers within a
// tenant namespace.
type Engine struct {
	db       *gorm.DB
	producer *events.Producer
}

// NewEngine builds a payroll engine. The producer may be nil.
func NewEngine(db *gorm.DB, producer *events.Producer) *Engine {
	return &Engine{db: db, producer: producer}
}

// ParsePeriod validates a YYYY-MM payroll month and returns its year and month.
func ParsePeriod(period string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return 0, 0, apperrors.Validationf("period must be YYYY-MM, got %q", period)
	}
	return t.Year(), t.Month(), nil
}

// WorkingDays counts the calendar days of a month minus every occurrence of
// the weekly holiday.
func WorkingDays(year int, month time.Month) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	working := 0
	for day := 1; day <= daysInMonth; day++ {
		if time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Weekday() != WeeklyHoliday {
			working++
		}
	}
	return working
}

// Generate computes and stores the salary record for (employee, period).
// Generation is idempotent by rejection: a second call for the same pair
// fails with a conflict, backed by the store's unique index. The record is
// created held when the employee has any open task not yet done.
func (e *Engine) Generate(paths tenant.PathSet, actorID, employeeID, period string) (*models.Salary, error) {
	year, month, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	var salary models.Salary

	err = e.db.Transaction(func(tx *gorm.DB) error {
		var employee models.EmployeeProfile
		if err := tx.Where("tenant_path = ? AND id = ?",
			paths.Path(tenant.KindEmployees), employeeID).First(&employee).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("employee %s", employeeID)
			}
			return apperrors.StoreUnavailablef("loading employee: %v", err)
		}

		if employee.BasicSalary < 0 || employee.Allowances < 0 {
			return apperrors.Validationf("employee %s has negative earnings components", employeeID)
		}

		var existing int64
		if err := tx.Model(&models.Salary{}).
			Where("tenant_path = ? AND employee_id = ? AND period = ?",
				paths.Path(tenant.KindSalaries), employeeID, period).
			Count(&existing).Error; err != nil {
			return apperrors.StoreUnavailablef("checking existing salary: %v", err)
		}
		if existing > 0 {
			return apperrors.Conflictf("salary for employee %s already generated for %s", employeeID, period)
		}

		workingDays := WorkingDays(year, month)

		var presentDays int64
		if err := tx.Model(&models.AttendanceRecord{}).
			Where("tenant_path = ? AND employee_id = ? AND date LIKE ? AND present = ?",
				paths.Path(tenant.KindAttendance), employeeID, period+"-%", true).
			Count(&presentDays).Error; err != nil {
			return apperrors.StoreUnavailablef("counting attendance: %v", err)
		}
		if int(presentDays) > workingDays {
			presentDays = int64(workingDays)
		}

		var advances []models.SalaryAdvance
		if err := tx.Where("tenant_path = ? AND employee_id = ?",
			paths.Path(tenant.KindAdvances), employeeID).Find(&advances).Error; err != nil {
			return apperrors.StoreUnavailablef("loading advances: %v", err)
		}

		advanceTotal := 0.0
		for _, advance := range advances {
			if advance.Amount < 0 {
				return apperrors.Validationf("advance %s has a negative amount", advance.ID)
			}
			if advance.TargetPeriod() == period {
				advanceTotal += advance.Amount
			}
		}

		totalEarnings := employee.TotalEarnings()
		perDayRate := totalEarnings / float64(workingDays)
		absenceDeduction := float64(workingDays-int(presentDays)) * perDayRate
		otherDeductions := 0.0
		totalDeductions := absenceDeduction + advanceTotal + otherDeductions
		netSalary := totalEarnings - totalDeductions

		var openTasks int64
		if err := tx.Model(&models.Task{}).
			Where("tenant_path = ? AND assignee_id = ? AND status NOT IN ?",
				paths.Path(tenant.KindTasks), employee.AccountID,
				[]models.TaskStatus{models.TaskStatusDone, models.TaskStatusApproved}).
			Count(&openTasks).Error; err != nil {
			return apperrors.StoreUnavailablef("counting open tasks: %v", err)
		}

		salary = models.Salary{
			ID:               uuid.NewString(),
			TenantPath:       paths.Path(tenant.KindSalaries),
			EmployeeID:       employeeID,
			Period:           period,
			BasicSalary:      employee.BasicSalary,
			Allowances:       employee.Allowances,
			TotalEarnings:    totalEarnings,
			WorkingDays:      workingDays,
			PresentDays:      int(presentDays),
			PerDayRate:       perDayRate,
			AbsenceDeduction: absenceDeduction,
			AdvanceDeduction: advanceTotal,
			OtherDeductions:  otherDeductions,
			TotalDeductions:  totalDeductions,
			NetSalary:        netSalary,
			RemainingAmount:  netSalary,
			IsHeld:           openTasks > 0,
		}

		if err := tx.Create(&salary).Error; err != nil {
			if isDuplicateErr(err) {
				return apperrors.Conflictf("salary for employee %s already generated for %s", employeeID, period)
			}
			return apperrors.StoreUnavailablef("storing salary: %v", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"period":      period,
		"net_salary":  salary.NetSalary,
		"held":        salary.IsHeld,
	}).Info("salary generated")

	e.producer.Publish(events.TypeSalaryGenerated, paths.Root(), actorID, map[string]interface{}{
		"salary_id":   salary.ID,
		"employee_id": employeeID,
		"period":      period,
		"net_salary":  salary.NetSalary,
	})

	return &salary, nil
}

// RecordPayment appends a ledger entry against a salary and re-derives the
// paid totals from the full ledger. The paid date is set exactly once, on the
// transition into fully paid. Holding does not block payments.
func (e *Engine) RecordPayment(paths tenant.PathSet, actorID, salaryID string, amount float64, date string) (*models.Salary, error) {
	if amount <= 0 {
		return nil, apperrors.Validationf("payment amount must be positive")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperrors.Validationf("payment date must be YYYY-MM-DD, got %q", date)
	}

	var salary models.Salary

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_path = ? AND id = ?",
			paths.Path(tenant.KindSalaries), salaryID).First(&salary).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("salary %s", salaryID)
			}
			return apperrors.StoreUnavailablef("loading salary: %v", err)
		}

		payment := models.SalaryPayment{
			ID:         uuid.NewString(),
			TenantPath: paths.Path(tenant.KindPayments),
			SalaryID:   salary.ID,
			Amount:     amount,
			Date:       date,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return apperrors.StoreUnavailablef("storing payment: %v", err)
		}

		var paidAmount float64
		if err := tx.Model(&models.SalaryPayment{}).
			Where("tenant_path = ? AND salary_id = ?", paths.Path(tenant.KindPayments), salary.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&paidAmount).Error; err != nil {
			return apperrors.StoreUnavailablef("summing ledger: %v", err)
		}

		wasPaid := salary.IsPaid
		salary.PaidAmount = paidAmount
		salary.RemainingAmount = salary.NetSalary - paidAmount
		salary.IsPaid = salary.RemainingAmount <= 0
		if salary.IsPaid && !wasPaid {
			now := time.Now()
			salary.PaidAt = &now
		}

		if err := tx.Save(&salary).Error; err != nil {
			return apperrors.StoreUnavailablef("updating salary: %v", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	e.producer.Publish(events.TypePaymentRecorded, paths.Root(), actorID, map[string]interface{}{
		"salary_id": salary.ID,
		"amount":    amount,
		"is_paid":   salary.IsPaid,
	})

	return &salary, nil
}

// Hold marks a salary held. The flag is informational and does not block
// payment recording.
func (e *Engine) Hold(paths tenant.PathSet, actorID, salaryID string) (*models.Salary, error) {
	return e.setHold(paths, actorID, salaryID, true)
}

// Release clears the hold flag.
func (e *Engine) Release(paths tenant.PathSet, actorID, salaryID string) (*models.Salary, error) {
	return e.setHold(paths, actorID, salaryID, false)
}

func (e *Engine) setHold(paths tenant.PathSet, actorID, salaryID string, held bool) (*models.Salary, error) {
	var salary models.Salary

	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_path = ? AND id = ?",
			paths.Path(tenant.KindSalaries), salaryID).First(&salary).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFoundf("salary %s", salaryID)
			}
			return apperrors.StoreUnavailablef("loading salary: %v", err)
		}

		salary.IsHeld = held
		if err := tx.Save(&salary).Error; err != nil {
			return apperrors.StoreUnavailablef("updating salary: %v", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := events.TypeSalaryHeld
	if !held {
		eventType = events.TypeSalaryReleased
	}
	e.producer.Publish(eventType, paths.Root(), actorID, map[string]interface{}{
		"salary_id": salary.ID,
	})

	return &salary, nil
}

// isDuplicateErr recognizes a unique-index violation from the store. The
// unique (tenant_path, employee_id, period) index is the backstop against
// two concurrent generate calls both passing the existence check.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
