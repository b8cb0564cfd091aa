package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/atelierhq/studio-backoffice/shared/config"
	"github.com/atelierhq/studio-backoffice/shared/events"
	"github.com/atelierhq/studio-backoffice/shared/middleware"
	"github.com/atelierhq/studio-backoffice/shared/models"
	"github.com/atelierhq/studio-backoffice/shared/payroll"
	"github.com/atelierhq/studio-backoffice/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := config.MigrateDatabase(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis for session management. Bearer-token auth still works
	// without it; only the session cookie scheme needs Redis.
	if err := utils.InitRedis(); err != nil {
		logrus.Warnf("Failed to connect to Redis, session scheme disabled: %v", err)
	} else {
		defer utils.CloseRedis()
	}

	// Initialize event producer (optional)
	var producer *events.Producer
	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		producer, err = events.NewProducer(broker)
		if err != nil {
			logrus.Warnf("Failed to initialize event producer, events disabled: %v", err)
		} else {
			defer producer.Close()
		}
	}

	// Initialize authentication middleware
	authMiddleware, err := middleware.NewAuthMiddleware(db)
	if err != nil {
		log.Fatal("Failed to initialize auth middleware:", err)
	}

	engine := payroll.NewEngine(db, producer)

	router := gin.Default()
	registerRoutes(router, db, authMiddleware, engine, producer)

	port := os.Getenv("BACKOFFICE_PORT")
	if port == "" {
		port = "8080"
	}

	logrus.Infof("Back office starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start back office:", err)
	}
}

// registerRoutes wires every resource group behind the credential chain.
// Route-level guards reject absent principals and wrong roles; finer-grained
// scoping happens in the access filter inside each handler.
func registerRoutes(router *gin.Engine, db *gorm.DB, am *middleware.AuthMiddleware, engine *payroll.Engine, producer *events.Producer) {
	router.Use(corsMiddleware())
	router.Use(am.Authenticate())

	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Back office is healthy", nil)
	})

	auth := router.Group("/auth")
	{
		auth.POST("/login", handleLogin(db))
		auth.POST("/provider", handleProviderSignIn(db))
		auth.POST("/logout", am.RequireAuth(), handleLogout())
		auth.GET("/me", am.RequireAuth(), handleMe())
	}

	// Global identity store management
	users := router.Group("/users")
	users.Use(am.RequireAuth(), am.RequireRole(models.RolePrincipal, models.RoleAdmin))
	{
		users.GET("", handleListAccounts(db))
		users.GET("/:id", handleGetAccount(db))
		users.POST("", handleCreateAccount(db))
		users.PUT("/:id", handleUpdateAccount(db))
		users.DELETE("/:id", handleDeleteAccount(db))
	}

	// Staff directory
	employees := router.Group("/employees")
	employees.Use(am.RequireAuth())
	{
		employees.GET("", handleListEmployees(db))
		employees.GET("/:id", handleGetEmployee(db))
		employees.POST("", handleCreateEmployee(db))
		employees.PUT("/:id", handleUpdateEmployee(db))
		employees.DELETE("/:id", handleDeleteEmployee(db))
		employees.GET("/:id/documents", handleListEmployeeDocuments(db))
		employees.POST("/:id/documents", handleCreateEmployeeDocument(db))
	}

	clients := router.Group("/clients")
	clients.Use(am.RequireAuth())
	{
		clients.GET("", handleListClients(db))
		clients.POST("", handleCreateClient(db))
		clients.PUT("/:id", handleUpdateClient(db))
		clients.DELETE("/:id", handleDeleteClient(db))
	}

	// Projects, divisions, items
	projects := router.Group("/projects")
	projects.Use(am.RequireAuth())
	{
		projects.GET("", handleListProjects(db))
		projects.GET("/:id", handleGetProject(db))
		projects.POST("", handleCreateProject(db))
		projects.PUT("/:id", handleUpdateProject(db))
		projects.DELETE("/:id", handleDeleteProject(db, producer))
		projects.GET("/:id/divisions", handleListDivisions(db))
		projects.POST("/:id/divisions", handleCreateDivision(db))
	}

	divisions := router.Group("/divisions")
	divisions.Use(am.RequireAuth())
	{
		divisions.PUT("/:id", handleUpdateDivision(db))
		divisions.DELETE("/:id", handleDeleteDivision(db))
		divisions.GET("/:id/items", handleListItems(db))
		divisions.POST("/:id/items", handleCreateItem(db))
	}

	items := router.Group("/items")
	items.Use(am.RequireAuth())
	{
		items.PUT("/:id", handleUpdateItem(db))
		items.DELETE("/:id", handleDeleteItem(db))
	}

	assignments := router.Group("/assignments")
	assignments.Use(am.RequireAuth(), am.RequireRole(models.RolePrincipal, models.RoleAdmin))
	{
		assignments.GET("", handleListAssignments(db))
		assignments.POST("", handleCreateAssignment(db))
		assignments.DELETE("/:id", handleDeleteAssignment(db))
	}

	tasks := router.Group("/tasks")
	tasks.Use(am.RequireAuth())
	{
		tasks.GET("", handleListTasks(db))
		tasks.GET("/:id", handleGetTask(db))
		tasks.POST("", handleCreateTask(db))
		tasks.PUT("/:id", handleUpdateTask(db))
		tasks.DELETE("/:id", handleDeleteTask(db))
	}

	attendance := router.Group("/attendance")
	attendance.Use(am.RequireAuth())
	{
		attendance.GET("", handleListAttendance(db))
		attendance.POST("", handleCreateAttendance(db))
	}

	advances := router.Group("/advances")
	advances.Use(am.RequireAuth(), am.RequireRole(models.RolePrincipal, models.RoleAdmin))
	{
		advances.GET("", handleListAdvances(db))
		advances.POST("", handleCreateAdvance(db))
		advances.DELETE("/:id", handleDeleteAdvance(db))
	}

	salaries := router.Group("/salaries")
	salaries.Use(am.RequireAuth())
	{
		salaries.GET("", handleListSalaries(db))
		salaries.GET("/:id", handleGetSalary(db))
		salaries.POST("/generate", am.RequireRole(models.RolePrincipal, models.RoleAdmin), handleGenerateSalary(engine, db))
		salaries.POST("/:id/payments", am.RequireRole(models.RolePrincipal, models.RoleAdmin), handleRecordPayment(engine, db))
		salaries.POST("/:id/hold", am.RequireRole(models.RolePrincipal, models.RoleAdmin), handleHoldSalary(engine, db))
		salaries.POST("/:id/release", am.RequireRole(models.RolePrincipal, models.RoleAdmin), handleReleaseSalary(engine, db))
	}

	procurement := router.Group("/procurement")
	procurement.Use(am.RequireAuth())
	{
		procurement.GET("", handleListProcurement(db))
		procurement.GET("/:id", handleGetProcurement(db))
		procurement.POST("", handleCreateProcurement(db))
		procurement.PUT("/:id", handleUpdateProcurement(db))
		procurement.DELETE("/:id", handleDeleteProcurement(db))
	}
}

// corsMiddleware allows the browser client to call the API cross-origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
