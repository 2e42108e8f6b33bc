// Package server wires services, handlers and middleware into the HTTP router.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"budgetbook/internal/events"
	"budgetbook/internal/handlers"
	"budgetbook/internal/middleware"
	"budgetbook/internal/passkey"
	"budgetbook/internal/services"

	_ "budgetbook/internal/docs" // Import swagger docs
)

// Services holds every service the API exposes.
type Services struct {
	User        services.UserServicer
	APIKey      services.APIKeyServicer
	Passkey     services.PasskeyServicer
	Budget      services.BudgetServicer
	Transaction services.TransactionServicer
	Share       services.ShareServicer
	AutoBalance services.AutoBalanceServicer
	Allocation  services.AllocationServicer
	Payroll     services.PayrollServicer
	Audit       services.AuditServicer
}

// NewServices builds the services on top of db. Changes are reported to
// emitter; rp identifies the deployment to passkey authenticators.
func NewServices(db *gorm.DB, emitter events.Emitter, rp services.RelyingParty) (Services, error) {
	passkeys, err := services.NewPasskeyService(db, rp, passkey.NewSessionStore(passkey.SessionTTL))
	if err != nil {
		return Services{}, fmt.Errorf("passkeys: %w", err)
	}
	return Services{
		User:        services.NewUserService(db),
		APIKey:      services.NewAPIKeyService(db),
		Passkey:     passkeys,
		Budget:      services.NewBudgetService(db, emitter),
		Transaction: services.NewTransactionService(db, emitter),
		Share:       services.NewShareService(db, emitter),
		AutoBalance: services.NewAutoBalanceService(db, emitter),
		Allocation:  services.NewAllocationService(db, emitter),
		Payroll:     services.NewPayrollService(db, emitter),
		Audit:       services.NewAuditService(db),
	}, nil
}

// Options configures the router.
type Options struct {
	CORSOrigins    []string
	PipelineAPIKey string
	// Swagger serves the API documentation under /swagger.
	Swagger bool
}

// NewRouter returns the gin engine serving the API under /api/v1.
func NewRouter(svc Services, opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.User, svc.Audit)
	budgetHandler := handlers.NewBudgetHandler(svc.Budget, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transaction, svc.Audit)
	shareHandler := handlers.NewShareHandler(svc.Share, svc.Audit)
	autoBalanceHandler := handlers.NewAutoBalanceHandler(svc.AutoBalance, svc.Audit)
	allocationHandler := handlers.NewAllocationHandler(svc.Allocation, svc.Audit)
	payrollHandler := handlers.NewPayrollHandler(svc.Payroll, svc.Audit)
	apiKeyHandler := handlers.NewAPIKeyHandler(svc.APIKey, svc.Audit)
	passkeyHandler := handlers.NewPasskeyHandler(svc.Passkey, svc.User, svc.Audit)
	mcpHandler := handlers.NewMCPHandler(svc.Budget, svc.Transaction, svc.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(opts.CORSOrigins))

	if opts.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/passkeys/login/begin", passkeyHandler.BeginLogin)
	auth.POST("/passkeys/login/finish", passkeyHandler.FinishLogin)

	// Tool clients authenticate with personal API keys
	v1.POST("/mcp", middleware.APIKeyMiddleware(svc.APIKey), mcpHandler.Serve)

	// Scheduler hooks
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	pipeline.POST("/payroll/run", payrollHandler.RunDuePayrolls)
	pipeline.POST("/budgets/:id/payroll", payrollHandler.RunPipelineBudgetPayroll)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	apiKeys := protected.Group("/api-keys")
	apiKeys.GET("", apiKeyHandler.GetAPIKeys)
	apiKeys.POST("", apiKeyHandler.CreateAPIKey)
	apiKeys.DELETE("/:keyId", apiKeyHandler.DeleteAPIKey)

	passkeys := protected.Group("/passkeys")
	passkeys.GET("", passkeyHandler.GetPasskey)
	passkeys.DELETE("", passkeyHandler.DeletePasskey)
	passkeys.POST("/register/begin", passkeyHandler.BeginRegistration)
	passkeys.POST("/register/finish", passkeyHandler.FinishRegistration)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)
	budgets.GET("/:id/summary", budgetHandler.GetBudgetSummary)

	budgets.GET("/:id/transactions", transactionHandler.GetTransactions)
	budgets.POST("/:id/transactions", transactionHandler.CreateTransaction)
	budgets.GET("/:id/transactions/:txnId", transactionHandler.GetTransaction)
	budgets.PUT("/:id/transactions/:txnId", transactionHandler.UpdateTransaction)
	budgets.DELETE("/:id/transactions/:txnId", transactionHandler.DeleteTransaction)

	budgets.GET("/:id/shares", shareHandler.GetMembers)
	budgets.POST("/:id/shares", shareHandler.AddMember)
	budgets.DELETE("/:id/shares", shareHandler.RemoveMember)

	budgets.GET("/:id/auto-balance", autoBalanceHandler.GetAutoBalance)
	budgets.PUT("/:id/auto-balance", autoBalanceHandler.UpdateAutoBalance)

	budgets.POST("/:id/payroll", payrollHandler.RunBudgetPayroll)

	allocations := protected.Group("/allocations")
	allocations.POST("/itemize", allocationHandler.Itemize)
	allocations.POST("/rebalance", allocationHandler.Rebalance)

	return router
}
