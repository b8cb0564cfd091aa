package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/atelierhq/studio-backoffice/shared/config"
	"github.com/atelierhq/studio-backoffice/shared/middleware"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/payroll"
	"github.com/atelierhq/studio-backoffice/shared/tenant"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDatabase(db))

	am := middleware.NewAuthMiddlewareWithVerifiers(db, middleware.NewLocalTokenVerifier(testSecret))
	engine := payroll.NewEngine(db, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	registerRoutes(router, db, am, engine, nil)

	return &testEnv{db: db, router: router}
}

func (env *testEnv) seedAccount(t *testing.T, role models.Role) *models.Account {
	t.Helper()
	account := &models.Account{
		ID:             uuid.NewString(),
		Email:          uuid.NewString() + "@example.com",
		Username:       string(role),
		PasswordHash:   "x",
		Role:           role,
		AccountType:    models.AccountTypeOrganization,
		OrganizationID: tenant.HouseOrganizationID,
		IsActive:       true,
	}
	require.NoError(t, env.db.Create(account).Error)
	return account
}

func (env *testEnv) request(t *testing.T, account *models.Account, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if account != nil {
		token, err := middleware.IssueLocalToken(account, testSecret)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func housePaths() tenant.PathSet {
	return tenant.NewPathSet("tenants/house")
}

func TestProjectCascadeDelete(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAccount(t, models.RolePrincipal)
	paths := housePaths()

	project := models.Project{ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindProjects), Name: "villa"}
	require.NoError(t, env.db.Create(&project).Error)

	division := models.Division{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindDivisions),
		ProjectID: project.ID, Name: "kitchen",
	}
	require.NoError(t, env.db.Create(&division).Error)

	for i := 0; i < 3; i++ {
		require.NoError(t, env.db.Create(&models.Item{
			ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindItems),
			ProjectID: project.ID, DivisionID: division.ID,
			Name: "tile", Status: models.ItemStatusNotStarted,
		}).Error)
	}
	require.NoError(t, env.db.Create(&models.Assignment{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindAssignments),
		ProjectID: project.ID, AccountID: "client-acc",
	}).Error)
	require.NoError(t, env.db.Create(&models.ProcurementItem{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindProcurement),
		ProjectID: project.ID, Name: "marble", Status: models.ItemStatusNotStarted,
	}).Error)

	// An unrelated project must survive the cascade.
	otherItem := models.Item{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindItems),
		ProjectID: "other-project", DivisionID: "other-division",
		Name: "keep me", Status: models.ItemStatusNotStarted,
	}
	require.NoError(t, env.db.Create(&otherItem).Error)

	w := env.request(t, owner, http.MethodDelete, "/projects/"+project.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var projects int64
	require.NoError(t, env.db.Model(&models.Project{}).Where("id = ?", project.ID).Count(&projects).Error)
	assert.Zero(t, projects)

	for name, model := range map[string]interface{}{
		"divisions":   &models.Division{},
		"items":       &models.Item{},
		"assignments": &models.Assignment{},
		"procurement": &models.ProcurementItem{},
	} {
		var count int64
		require.NoError(t, env.db.Model(model).Where("project_id = ?", project.ID).Count(&count).Error)
		assert.Zero(t, count, "cascade must leave no orphaned %s", name)
	}

	var kept int64
	require.NoError(t, env.db.Model(&models.Item{}).Where("id = ?", otherItem.ID).Count(&kept).Error)
	assert.EqualValues(t, 1, kept)
}

func TestClientCannotDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedAccount(t, models.RoleClient)
	paths := housePaths()

	project := models.Project{ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindProjects), Name: "villa"}
	require.NoError(t, env.db.Create(&project).Error)
	require.NoError(t, env.db.Create(&models.Assignment{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindAssignments),
		ProjectID: project.ID, AccountID: client.ID,
	}).Error)

	w := env.request(t, client, http.MethodDelete, "/projects/"+project.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "mutation denial must be explicit, not a silent no-op")

	var count int64
	require.NoError(t, env.db.Model(&models.Project{}).Where("id = ?", project.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestItemStatusTransitionEnforced(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAccount(t, models.RolePrincipal)
	paths := housePaths()

	item := models.Item{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindItems),
		ProjectID: "p1", DivisionID: "d1",
		Name: "tile", Status: models.ItemStatusPurchased,
	}
	require.NoError(t, env.db.Create(&item).Error)

	// Forward moves are fine.
	w := env.request(t, owner, http.MethodPut, "/items/"+item.ID, gin.H{"status": "installed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Backwards is rejected and the stored status is untouched.
	w = env.request(t, owner, http.MethodPut, "/items/"+item.ID, gin.H{"status": "not_started"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var reloaded models.Item
	require.NoError(t, env.db.First(&reloaded, "id = ?", item.ID).Error)
	assert.Equal(t, models.ItemStatusInstalled, reloaded.Status)
}

func TestClientProcurementMarkupHidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAccount(t, models.RolePrincipal)
	client := env.seedAccount(t, models.RoleClient)
	paths := housePaths()

	project := models.Project{ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindProjects), Name: "villa"}
	require.NoError(t, env.db.Create(&project).Error)
	require.NoError(t, env.db.Create(&models.Assignment{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindAssignments),
		ProjectID: project.ID, AccountID: client.ID,
	}).Error)
	require.NoError(t, env.db.Create(&models.ProcurementItem{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindProcurement),
		ProjectID: project.ID, Name: "marble", Cost: 1000, InternalMarkup: 250,
		Status: models.ItemStatusNotStarted,
	}).Error)

	w := env.request(t, client, http.MethodGet, "/procurement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"internal_markup":0`)
	assert.NotContains(t, w.Body.String(), `"internal_markup":250`)

	w = env.request(t, owner, http.MethodGet, "/procurement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"internal_markup":250`)
}

func TestDuplicateAttendanceRejected(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAccount(t, models.RolePrincipal)
	paths := housePaths()

	employee := models.EmployeeProfile{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindEmployees),
		AccountID: uuid.NewString(), Name: "Worker",
	}
	require.NoError(t, env.db.Create(&employee).Error)

	body := gin.H{"employee_id": employee.ID, "date": "2026-08-03", "present": true}
	w := env.request(t, owner, http.MethodPost, "/attendance", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.request(t, owner, http.MethodPost, "/attendance", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGenerateSalaryEndpointRoleGated(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedAccount(t, models.RolePrincipal)
	employeeAccount := env.seedAccount(t, models.RoleEmployee)
	paths := housePaths()

	employee := models.EmployeeProfile{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindEmployees),
		AccountID: employeeAccount.ID, Name: "Worker", BasicSalary: 26000,
	}
	require.NoError(t, env.db.Create(&employee).Error)

	body := gin.H{"employee_id": employee.ID, "period": "2024-04"}

	w := env.request(t, employeeAccount, http.MethodPost, "/salaries/generate", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, owner, http.MethodPost, "/salaries/generate", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Generating again for the same month conflicts.
	w = env.request(t, owner, http.MethodPost, "/salaries/generate", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEmployeeSalaryVisibility(t *testing.T) {
	env := newTestEnv(t)
	employeeAccount := env.seedAccount(t, models.RoleEmployee)
	paths := housePaths()

	mine := models.EmployeeProfile{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindEmployees),
		AccountID: employeeAccount.ID, Name: "Me",
	}
	other := models.EmployeeProfile{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindEmployees),
		AccountID: "someone-else", Name: "Colleague",
	}
	require.NoError(t, env.db.Create(&mine).Error)
	require.NoError(t, env.db.Create(&other).Error)

	mySalary := models.Salary{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindSalaries),
		EmployeeID: mine.ID, Period: "2026-07", NetSalary: 1,
	}
	otherSalary := models.Salary{
		ID: uuid.NewString(), TenantPath: paths.Path(tenant.KindSalaries),
		EmployeeID: other.ID, Period: "2026-07", NetSalary: 1,
	}
	require.NoError(t, env.db.Create(&mySalary).Error)
	require.NoError(t, env.db.Create(&otherSalary).Error)

	w := env.request(t, employeeAccount, http.MethodGet, "/salaries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), mySalary.ID)
	assert.NotContains(t, w.Body.String(), otherSalary.ID)

	// Fetching the other salary directly reads as not found, not forbidden.
	w = env.request(t, employeeAccount, http.MethodGet, "/salaries/"+otherSalary.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnonymousRequestsRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, nil, http.MethodGet, "/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
