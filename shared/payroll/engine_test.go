package payroll

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atelierhq/studio-backoffice/shared/apperrors"
	"github.com/atelierhq/studio-backoffice/shared/config"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/tenant"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDatabase(db))
	return db
}

func seedEmployee(t *testing.T, db *gorm.DB, paths tenant.PathSet, basic, allowances float64) models.EmployeeProfile {
	t.Helper()
	e := models.EmployeeProfile{
		ID:          uuid.NewString(),
		TenantPath:  paths.Path(tenant.KindEmployees),
		AccountID:   uuid.NewString(),
		Name:        "Test Employee",
		BasicSalary: basic,
		Allowances:  allowances,
	}
	require.NoError(t, db.Create(&e).Error)
	return e
}

func markPresent(t *testing.T, db *gorm.DB, paths tenant.PathSet, e models.EmployeeProfile, dates ...string) {
	t.Helper()
	for _, date := range dates {
		require.NoError(t, db.Create(&models.AttendanceRecord{
			ID:         uuid.NewString(),
			TenantPath: paths.Path(tenant.KindAttendance),
			EmployeeID: e.ID,
			AccountID:  e.AccountID,
			Date:       date,
			Present:    true,
		}).Error)
	}
}

func markFullMonth(t *testing.T, db *gorm.DB, paths tenant.PathSet, e models.EmployeeProfile, year int, month time.Month) {
	t.Helper()
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	for day := 1; day <= days; day++ {
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if d.Weekday() != WeeklyHoliday {
			markPresent(t, db, paths, e, d.Format("2006-01-02"))
		}
	}
}

func TestWorkingDays(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		// April 2024 has 30 days and Sundays on the 7th, 14th, 21st, 28th.
		{2024, time.April, 26},
		// February 2024 (leap) has 29 days and 4 Sundays.
		{2024, time.February, 25},
		// March 2026 has 31 days and 5 Sundays.
		{2026, time.March, 26},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d-%02d", tt.year, tt.month), func(t *testing.T) {
			assert.Equal(t, tt.want, WorkingDays(tt.year, tt.month))
		})
	}
}

func TestParsePeriod(t *testing.T) {
	year, month, err := ParsePeriod("2024-04")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.April, month)

	for _, bad := range []string{"2024", "04-2024", "2024-13", "2024-04-01", ""} {
		_, _, err := ParsePeriod(bad)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "period %q", bad)
	}
}

func TestGenerateProratesByAttendance(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	// 26 working days in April 2024, gross 26000, so the per-day rate is
	// exactly 1000 and two absent days deduct 2000.
	employee := seedEmployee(t, db, paths, 20000, 6000)

	present := make([]string, 0, 24)
	day := 1
	for len(present) < 24 {
		d := time.Date(2024, time.April, day, 0, 0, 0, 0, time.UTC)
		if d.Weekday() != WeeklyHoliday {
			present = append(present, d.Format("2006-01-02"))
		}
		day++
	}
	markPresent(t, db, paths, employee, present...)

	salary, err := engine.Generate(paths, "actor-1", employee.ID, "2024-04")
	require.NoError(t, err)

	assert.Equal(t, 26, salary.WorkingDays)
	assert.Equal(t, 24, salary.PresentDays)
	assert.InDelta(t, 1000.0, salary.PerDayRate, 1e-9)
	assert.InDelta(t, 2000.0, salary.AbsenceDeduction, 1e-9)
	assert.InDelta(t, 24000.0, salary.NetSalary, 1e-9)
	assert.InDelta(t, 24000.0, salary.RemainingAmount, 1e-9)
	assert.False(t, salary.IsPaid)
	assert.False(t, salary.IsHeld)
	assert.Nil(t, salary.PaidAt)
}

func TestGenerateDeductsAdvancesForTargetPeriod(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	employee := seedEmployee(t, db, paths, 26000, 0)

	// One advance pinned to the period, one dated inside it, one targeting
	// another month. Only the first two count.
	advances := []models.SalaryAdvance{
		{ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindAdvances), EmployeeID: employee.ID, Amount: 3000, Date: "2024-03-15", Period: "2024-04"},
		{ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindAdvances), EmployeeID: employee.ID, Amount: 1000, Date: "2024-04-10"},
		{ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindAdvances), EmployeeID: employee.ID, Amount: 5000, Date: "2024-05-02"},
	}
	for _, a := range advances {
		require.NoError(t, db.Create(&a).Error)
	}

	// Full attendance so the only deduction is the advances.
	markFullMonth(t, db, paths, employee, 2024, time.April)

	salary, err := engine.Generate(paths, "actor-1", employee.ID, "2024-04")
	require.NoError(t, err)

	assert.InDelta(t, 4000.0, salary.AdvanceDeduction, 1e-9)
	assert.InDelta(t, 0.0, salary.AbsenceDeduction, 1e-9)
	assert.InDelta(t, 22000.0, salary.NetSalary, 1e-9)
}

func TestGenerateTwiceConflicts(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	employee := seedEmployee(t, db, paths, 26000, 0)

	_, err := engine.Generate(paths, "actor-1", employee.ID, "2024-04")
	require.NoError(t, err)

	_, err = engine.Generate(paths, "actor-1", employee.ID, "2024-04")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	var count int64
	require.NoError(t, db.Model(&models.Salary{}).
		Where("employee_id = ? AND period = ?", employee.ID, "2024-04").
		Count(&count).Error)
	assert.EqualValues(t, 1, count, "rejected retry must not leave a second record")

	// The same month for a different employee is fine.
	other := seedEmployee(t, db, paths, 20000, 0)
	_, err = engine.Generate(paths, "actor-1", other.ID, "2024-04")
	assert.NoError(t, err)
}

func TestGenerateUnknownEmployee(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	_, err := engine.Generate(paths, "actor-1", "missing", "2024-04")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGenerateBadPeriod(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	_, err := engine.Generate(paths, "actor-1", "whoever", "April 2024")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGenerateHeldWhileTasksOpen(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	employee := seedEmployee(t, db, paths, 26000, 0)

	require.NoError(t, db.Create(&models.Task{
		ID:         uuid.NewString(),
		TenantPath: paths.Path(tenant.KindTasks),
		AssigneeID: employee.AccountID,
		Title:      "site survey",
		Status:     models.TaskStatusInProgress,
	}).Error)
	require.NoError(t, db.Create(&models.Task{
		ID:         uuid.NewString(),
		TenantPath: paths.Path(tenant.KindTasks),
		AssigneeID: employee.AccountID,
		Title:      "drawings",
		Status:     models.TaskStatusApproved,
	}).Error)

	salary, err := engine.Generate(paths, "actor-1", employee.ID, "2024-04")
	require.NoError(t, err)
	assert.True(t, salary.IsHeld, "open in-progress task must hold the salary")

	released, err := engine.Release(paths, "actor-1", salary.ID)
	require.NoError(t, err)
	assert.False(t, released.IsHeld)

	held, err := engine.Hold(paths, "actor-1", salary.ID)
	require.NoError(t, err)
	assert.True(t, held.IsHeld)
}

func TestRecordPaymentDerivesTotalsFromLedger(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	employee := seedEmployee(t, db, paths, 26000, 0)
	markFullMonth(t, db, paths, employee, 2024, time.April)

	salary, err := engine.Generate(paths, "actor-1", employee.ID, "2024-04")
	require.NoError(t, err)
	net := salary.NetSalary
	require.InDelta(t, 26000.0, net, 1e-9)

	first, err := engine.RecordPayment(paths, "actor-1", salary.ID, net/2, "2024-05-01")
	require.NoError(t, err)
	assert.InDelta(t, net/2, first.PaidAmount, 1e-9)
	assert.InDelta(t, net/2, first.RemainingAmount, 1e-9)
	assert.False(t, first.IsPaid)
	assert.Nil(t, first.PaidAt)

	second, err := engine.RecordPayment(paths, "actor-1", salary.ID, net/2, "2024-05-15")
	require.NoError(t, err)
	assert.InDelta(t, net, second.PaidAmount, 1e-9)
	assert.InDelta(t, 0.0, second.RemainingAmount, 1e-9)
	assert.True(t, second.IsPaid)
	require.NotNil(t, second.PaidAt)
	firstPaidAt := *second.PaidAt

	// Overpaying later keeps the flag and the original paid date.
	third, err := engine.RecordPayment(paths, "actor-1", salary.ID, 100, "2024-05-20")
	require.NoError(t, err)
	assert.True(t, third.IsPaid)
	require.NotNil(t, third.PaidAt)
	assert.Equal(t, firstPaidAt.Unix(), third.PaidAt.Unix())

	var payments []models.SalaryPayment
	require.NoError(t, db.Where("salary_id = ?", salary.ID).Find(&payments).Error)
	assert.Len(t, payments, 3, "ledger is append only")
}

func TestRecordPaymentValidation(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	_, err := engine.RecordPayment(paths, "actor-1", "whatever", 0, "2024-05-01")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = engine.RecordPayment(paths, "actor-1", "whatever", -50, "2024-05-01")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = engine.RecordPayment(paths, "actor-1", "whatever", 100, "May 1st")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = engine.RecordPayment(paths, "actor-1", "missing", 100, "2024-05-01")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestHoldDoesNotBlockPayment(t *testing.T) {
	db := openTestDB(t)
	engine := NewEngine(db, nil)
	paths := tenant.NewPathSet("tenants/house")

	employee := seedEmployee(t, db, paths, 26000, 0)
	salary, err := engine.Generate(paths, "actor-1", employee.ID, "2024-04")
	require.NoError(t, err)

	_, err = engine.Hold(paths, "actor-1", salary.ID)
	require.NoError(t, err)

	paid, err := engine.RecordPayment(paths, "actor-1", salary.ID, 500, "2024-05-01")
	require.NoError(t, err)
	assert.InDelta(t, 500.0, paid.PaidAmount, 1e-9)
	assert.True(t, paid.IsHeld, "payment leaves the hold flag alone")
}
