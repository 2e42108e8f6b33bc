package services

import (
	"context"
	"io"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"budgetbook/internal/allocation"
	"budgetbook/internal/ledger"
	"budgetbook/internal/models"
	"budgetbook/internal/money"
	"budgetbook/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// APIKeyServicer defines the contract for per-user API keys.
type APIKeyServicer interface {
	CreateAPIKey(ctx context.Context, userID, name, prefix, tokenHash string) (*models.APIKey, error)
	ListAPIKeys(ctx context.Context, userID string) ([]models.APIKey, error)
	DeleteAPIKey(ctx context.Context, userID, keyID string) error
	AuthenticateAPIKey(ctx context.Context, tokenHash string) (*models.APIKey, error)
}

// PasskeyServicer defines the contract for WebAuthn passkeys.
type PasskeyServicer interface {
	BeginRegistration(ctx context.Context, userID string) (*protocol.CredentialCreation, error)
	FinishRegistration(ctx context.Context, userID string, body io.Reader) (*models.Passkey, error)
	GetPasskey(ctx context.Context, userID string) (*models.Passkey, error)
	DeletePasskey(ctx context.Context, userID string) error
	BeginLogin(ctx context.Context) (string, *protocol.CredentialAssertion, error)
	FinishLogin(ctx context.Context, sessionID string, body io.Reader) (*models.User, error)
}

// BudgetWithBalance is a budget together with figures derived from its
// transactions at read time.
type BudgetWithBalance struct {
	models.Budget
	Balance money.Cents `json:"balance"`
	Credits money.Cents `json:"credits"`
	Debits  money.Cents `json:"debits"`
}

// BudgetUpdate holds the editable budget fields; nil means unchanged.
type BudgetUpdate struct {
	Name    *string
	Payroll *money.Cents
}

// BudgetSummary is a budget with its full set of aggregates.
type BudgetSummary struct {
	Budget  models.Budget  `json:"budget"`
	Summary ledger.Summary `json:"summary"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID, name string, payroll money.Cents) (*models.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]BudgetWithBalance, error)
	GetBudget(ctx context.Context, userID, budgetID string) (*BudgetWithBalance, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, update BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	GetSummary(ctx context.Context, userID, budgetID string, windowDays int) (*BudgetSummary, error)
}

// TransactionInput holds the editable transaction fields.
type TransactionInput struct {
	Description string
	Credit      bool
	Amount      money.Cents
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	// Query matches the description (case-insensitive) or, when it parses as
	// an amount, the exact amount.
	Query string
	// WindowDays limits the listing to the last N days when positive.
	WindowDays int
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID, budgetID string, input TransactionInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, userID, budgetID, transactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID, budgetID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(ctx context.Context, userID, budgetID, transactionID string, input TransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, budgetID, transactionID string) error
}

// Member is a user with access to a budget.
type Member struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	SharedAt  time.Time `json:"shared_at"`
}

// ShareServicer defines the contract for budget membership.
type ShareServicer interface {
	ListMembers(ctx context.Context, userID, budgetID string) ([]Member, error)
	AddMember(ctx context.Context, userID, budgetID, email string) (*Member, error)
	RemoveMember(ctx context.Context, userID, budgetID, email string) error
}

// AutoBalanceConfig is a budget's auto-balance setting and its sources.
type AutoBalanceConfig struct {
	BudgetID string                      `json:"budget_id"`
	Enabled  bool                        `json:"enabled"`
	Sources  []allocation.WeightedSource `json:"sources"`
}

// AutoBalanceServicer defines the contract for auto-balance configuration.
type AutoBalanceServicer interface {
	GetConfig(ctx context.Context, userID, budgetID string) (*AutoBalanceConfig, error)
	UpdateConfig(ctx context.Context, userID, budgetID string, enabled bool, sources []allocation.WeightedSource) (*AutoBalanceConfig, error)
}

// RebalanceInput selects the budgets a rebalance moves money between.
type RebalanceInput struct {
	DeficitBudgetIDs []string
	SurplusBudgetIDs []string
	Description      string
}

// AllocationResult is the plan of an allocation and what happened when it
// was posted.
type AllocationResult struct {
	Plan   allocation.Plan   `json:"plan"`
	Report allocation.Report `json:"report"`
}

// AllocationServicer defines the contract for multi-budget allocations.
// On a partial failure both the result and the error are returned.
type AllocationServicer interface {
	Itemize(ctx context.Context, userID string, req allocation.ItemizeRequest) (*AllocationResult, error)
	Rebalance(ctx context.Context, userID string, input RebalanceInput) (*AllocationResult, error)
}

// Payroll skip reasons.
const (
	SkipNoPayroll     = "no payroll configured"
	SkipAlreadyPosted = "already posted for period"
)

// PayrollResult describes the payroll outcome for one budget.
type PayrollResult struct {
	BudgetID      string               `json:"budget_id"`
	Period        string               `json:"period"`
	Posted        bool                 `json:"posted"`
	SkipReason    string               `json:"skip_reason,omitempty"`
	TransactionID string               `json:"transaction_id,omitempty"`
	Amount        money.Cents          `json:"amount"`
	AutoBalance   []allocation.Posting `json:"auto_balance,omitempty"`
}

// PayrollBatchResult summarizes a run over every due budget.
type PayrollBatchResult struct {
	Period  string          `json:"period"`
	Posted  int             `json:"posted"`
	Skipped int             `json:"skipped"`
	Failed  int             `json:"failed"`
	Results []PayrollResult `json:"results"`
}

// PayrollServicer defines the contract for posting recurring payroll.
type PayrollServicer interface {
	RunBudgetPayroll(ctx context.Context, budgetID string, now time.Time) (*PayrollResult, error)
	RunBudgetPayrollForUser(ctx context.Context, userID, budgetID string, now time.Time) (*PayrollResult, error)
	RunDuePayrolls(ctx context.Context, now time.Time) (*PayrollBatchResult, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
