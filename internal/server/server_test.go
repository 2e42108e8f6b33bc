package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/events"
	"budgetbook/internal/logger"
	"budgetbook/internal/models"
	"budgetbook/internal/services"
	"budgetbook/internal/testutil"
	"budgetbook/internal/validator"
)

const (
	testAPIKey     = "pipeline-secret"
	testBudgetPath = "0190a1b2-0000-7000-8000-000000000001"
)

// testApp holds the full application stack backed by an in-memory database.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test", "error")
	validator.Register()
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	return setupAppWithKey(t, testAPIKey)
}

func setupAppWithKey(t *testing.T, apiKey string) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	svc, err := NewServices(db, events.Discard, services.RelyingParty{
		ID:      "localhost",
		Name:    "Budgetbook",
		Origins: []string{"http://localhost:5173"},
	})
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}
	router := NewRouter(svc, Options{
		CORSOrigins:    []string{"http://localhost:5173"},
		PipelineAPIKey: apiKey,
	})
	return &testApp{DB: db, Router: router}
}

func (app *testApp) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// request makes an authenticated request when token is set.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	header := map[string]string{}
	if token != "" {
		header["Authorization"] = "Bearer " + token
	}
	return app.do(method, path, body, header)
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	errObj, _ := parseJSON(t, rec)["error"].(map[string]interface{})
	if code, _ := errObj["code"].(string); code != want {
		t.Errorf("expected error code %s, got %s", want, rec.Body.String())
	}
}

// registerUser registers a new user and returns the access token, refresh token and user ID.
func (app *testApp) registerUser(t *testing.T, email string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","first_name":"Test","last_name":"User"}`, email)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	expectStatus(t, rec, http.StatusCreated)
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), result["refresh_token"].(string), user["id"].(string)
}

func (app *testApp) createBudget(t *testing.T, token, name string, payroll string) string {
	t.Helper()
	rec := app.request("POST", "/api/v1/budgets", fmt.Sprintf(`{"name":%q,"payroll":%s}`, name, payroll), token)
	expectStatus(t, rec, http.StatusCreated)
	return parseJSON(t, rec)["budget"].(map[string]interface{})["id"].(string)
}

func (app *testApp) addTransaction(t *testing.T, token, budgetID string, credit bool, amount string) {
	t.Helper()
	body := fmt.Sprintf(`{"description":"seed","credit":%t,"amount":%s}`, credit, amount)
	rec := app.request("POST", "/api/v1/budgets/"+budgetID+"/transactions", body, token)
	expectStatus(t, rec, http.StatusCreated)
}

func (app *testApp) balance(t *testing.T, token, budgetID string) float64 {
	t.Helper()
	rec := app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
	expectStatus(t, rec, http.StatusOK)
	return parseJSON(t, rec)["budget"].(map[string]interface{})["balance"].(float64)
}

func TestHealth(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/health", "", "")

	expectStatus(t, rec, http.StatusOK)
	if parseJSON(t, rec)["status"] != "ok" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
}

func TestCORSPreflight(t *testing.T) {
	app := setupApp(t)

	rec := app.do("OPTIONS", "/api/v1/budgets", "", map[string]string{"Origin": "http://localhost:5173"})

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := setupApp(t)

	rec := app.request("GET", "/api/v1/budgets", "", "")

	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestAuthFlow_Refresh(t *testing.T) {
	app := setupApp(t)
	_, refresh, _ := app.registerUser(t, "refresh@test.com")

	rec := app.request("POST", "/api/v1/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	expectStatus(t, rec, http.StatusOK)
	rotated := parseJSON(t, rec)["refresh_token"].(string)

	// Only the latest refresh token is accepted.
	rec = app.request("POST", "/api/v1/auth/refresh", `{"refresh_token":"`+refresh+`"}`, "")
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = app.request("POST", "/api/v1/auth/refresh", `{"refresh_token":"`+rotated+`"}`, "")
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("POST", "/api/v1/auth/login", `{"email":"REFRESH@test.com","password":"password123"}`, "")
	expectStatus(t, rec, http.StatusOK)
}

func TestBudgetFlow(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "budget@test.com")

	budgetID := app.createBudget(t, token, "Groceries", "0")
	app.addTransaction(t, token, budgetID, true, "100")
	app.addTransaction(t, token, budgetID, false, "40")

	if got := app.balance(t, token, budgetID); got != 60 {
		t.Errorf("expected balance 60, got %v", got)
	}

	rec := app.request("GET", "/api/v1/budgets/"+budgetID+"/summary", "", token)
	expectStatus(t, rec, http.StatusOK)
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["balance"].(float64) != 60 || summary["max_debit"].(float64) != 40 {
		t.Errorf("unexpected summary %v", summary)
	}
	if summary["window_days"].(float64) != 30 {
		t.Errorf("expected default window 30, got %v", summary["window_days"])
	}

	rec = app.request("PUT", "/api/v1/budgets/"+budgetID, `{"name":"Food","payroll":"250"}`, token)
	expectStatus(t, rec, http.StatusOK)
	budget := parseJSON(t, rec)["budget"].(map[string]interface{})
	if budget["name"] != "Food" || budget["payroll"].(float64) != 250 {
		t.Errorf("unexpected budget after update %v", budget)
	}

	rec = app.request("GET", "/api/v1/budgets", "", token)
	expectStatus(t, rec, http.StatusOK)
	if n := len(parseJSON(t, rec)["budgets"].([]interface{})); n != 1 {
		t.Errorf("expected 1 budget, got %d", n)
	}

	rec = app.request("DELETE", "/api/v1/budgets/"+budgetID, "", token)
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("GET", "/api/v1/budgets/"+budgetID, "", token)
	expectStatus(t, rec, http.StatusNotFound)

	var txns int64
	app.DB.Model(&models.Transaction{}).Where("budget_id = ?", budgetID).Count(&txns)
	if txns != 0 {
		t.Errorf("expected transactions to be deleted with the budget, got %d", txns)
	}

	var audits int64
	app.DB.Model(&models.AuditLog{}).Where("action = ?", "DELETE_BUDGET").Count(&audits)
	if audits != 1 {
		t.Errorf("expected a DELETE_BUDGET audit entry, got %d", audits)
	}
}

func TestTransactionFlow(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "txn@test.com")
	budgetID := app.createBudget(t, token, "Household", "0")

	rec := app.request("POST", "/api/v1/budgets/"+budgetID+"/transactions",
		`{"description":"Coffee beans","credit":false,"amount":12.5}`, token)
	expectStatus(t, rec, http.StatusCreated)
	txnID := parseJSON(t, rec)["transaction"].(map[string]interface{})["id"].(string)
	app.addTransaction(t, token, budgetID, true, "200")

	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/transactions?q=COFFEE", "", token)
	expectStatus(t, rec, http.StatusOK)
	if total := parseJSON(t, rec)["total_items"].(float64); total != 1 {
		t.Errorf("expected 1 match for the description, got %v", total)
	}

	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/transactions?q=12,50", "", token)
	expectStatus(t, rec, http.StatusOK)
	if total := parseJSON(t, rec)["total_items"].(float64); total != 1 {
		t.Errorf("expected 1 match for the amount, got %v", total)
	}

	rec = app.request("PUT", "/api/v1/budgets/"+budgetID+"/transactions/"+txnID,
		`{"description":"Coffee beans","credit":false,"amount":20}`, token)
	expectStatus(t, rec, http.StatusOK)
	if got := app.balance(t, token, budgetID); got != 180 {
		t.Errorf("expected balance 180, got %v", got)
	}

	rec = app.request("DELETE", "/api/v1/budgets/"+budgetID+"/transactions/"+txnID, "", token)
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/transactions/"+txnID, "", token)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestShareFlow(t *testing.T) {
	app := setupApp(t)
	ownerToken, _, _ := app.registerUser(t, "owner@test.com")
	guestToken, _, _ := app.registerUser(t, "guest@test.com")
	budgetID := app.createBudget(t, ownerToken, "Shared", "0")

	rec := app.request("GET", "/api/v1/budgets/"+budgetID, "", guestToken)
	expectStatus(t, rec, http.StatusForbidden)

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/shares", `{"email":"guest@test.com"}`, ownerToken)
	expectStatus(t, rec, http.StatusCreated)

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/shares", `{"email":"guest@test.com"}`, ownerToken)
	expectStatus(t, rec, http.StatusConflict)

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/shares", `{"email":"nobody@test.com"}`, ownerToken)
	expectStatus(t, rec, http.StatusNotFound)

	app.addTransaction(t, guestToken, budgetID, true, "5")

	rec = app.request("GET", "/api/v1/budgets/"+budgetID+"/shares", "", guestToken)
	expectStatus(t, rec, http.StatusOK)
	members := parseJSON(t, rec)["members"].([]interface{})
	if len(members) != 2 || members[0].(map[string]interface{})["email"] != "guest@test.com" {
		t.Errorf("expected members ordered by email, got %v", members)
	}

	rec = app.request("DELETE", "/api/v1/budgets/"+budgetID+"/shares?email=owner@test.com", "", guestToken)
	expectStatus(t, rec, http.StatusOK)

	rec = app.request("DELETE", "/api/v1/budgets/"+budgetID+"/shares?email=guest@test.com", "", guestToken)
	expectStatus(t, rec, http.StatusConflict)

	rec = app.request("GET", "/api/v1/budgets/"+budgetID, "", ownerToken)
	expectStatus(t, rec, http.StatusForbidden)
}

func TestAllocationFlow_Itemize(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "itemize@test.com")
	food := app.createBudget(t, token, "Food", "0")
	home := app.createBudget(t, token, "Home", "0")
	misc := app.createBudget(t, token, "Misc", "0")

	body := fmt.Sprintf(`{"description":"Market","total":100,"catch_all_budget_id":%q,"items":[`+
		`{"budget_id":%q,"description":"veg","amount":30},{"budget_id":%q,"amount":"30.00"}]}`, misc, food, home)
	rec := app.request("POST", "/api/v1/allocations/itemize", body, token)
	expectStatus(t, rec, http.StatusCreated)

	for id, want := range map[string]float64{food: -30, home: -30, misc: -40} {
		if got := app.balance(t, token, id); got != want {
			t.Errorf("budget %s: expected balance %v, got %v", id, want, got)
		}
	}

	over := fmt.Sprintf(`{"total":100,"items":[{"budget_id":%q,"amount":"100.01"}]}`, food)
	rec = app.request("POST", "/api/v1/allocations/itemize", over, token)
	expectStatus(t, rec, http.StatusBadRequest)
	if got := app.balance(t, token, food); got != -30 {
		t.Errorf("expected a rejected receipt to post nothing, got balance %v", got)
	}
}

func TestAllocationFlow_Rebalance(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "rebalance@test.com")
	deficit := app.createBudget(t, token, "Deficit", "0")
	first := app.createBudget(t, token, "First", "0")
	second := app.createBudget(t, token, "Second", "0")
	app.addTransaction(t, token, deficit, false, "50")
	app.addTransaction(t, token, first, true, "100")
	app.addTransaction(t, token, second, true, "100")

	body := fmt.Sprintf(`{"deficit_budget_ids":[%q],"surplus_budget_ids":[%q,%q]}`, deficit, first, second)
	rec := app.request("POST", "/api/v1/allocations/rebalance", body, token)
	expectStatus(t, rec, http.StatusCreated)

	for id, want := range map[string]float64{deficit: 0, first: 75, second: 75} {
		if got := app.balance(t, token, id); got != want {
			t.Errorf("budget %s: expected balance %v, got %v", id, want, got)
		}
	}
}

func TestAllocationFlow_ForbiddenBudget(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "mine@test.com")
	otherToken, _, _ := app.registerUser(t, "theirs@test.com")
	mine := app.createBudget(t, token, "Mine", "0")
	theirs := app.createBudget(t, otherToken, "Theirs", "0")

	body := fmt.Sprintf(`{"total":10,"items":[{"budget_id":%q,"amount":5},{"budget_id":%q,"amount":5}]}`, mine, theirs)
	rec := app.request("POST", "/api/v1/allocations/itemize", body, token)
	expectStatus(t, rec, http.StatusForbidden)

	if got := app.balance(t, token, mine); got != 0 {
		t.Errorf("expected nothing posted before authorization, got balance %v", got)
	}
}

func TestPayrollFlow(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "payroll@test.com")
	budgetID := app.createBudget(t, token, "Salary", "1000")

	rec := app.request("POST", "/api/v1/budgets/"+budgetID+"/payroll", "", token)
	expectStatus(t, rec, http.StatusOK)
	if posted := parseJSON(t, rec)["payroll"].(map[string]interface{})["posted"]; posted != true {
		t.Fatalf("expected payroll to be posted, got %s", rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/budgets/"+budgetID+"/payroll", "", token)
	expectStatus(t, rec, http.StatusOK)
	if posted := parseJSON(t, rec)["payroll"].(map[string]interface{})["posted"]; posted != false {
		t.Errorf("expected the second run to be skipped, got %s", rec.Body.String())
	}

	if got := app.balance(t, token, budgetID); got != 1000 {
		t.Errorf("expected one payroll credit, got balance %v", got)
	}
}

func TestPipelineAuth(t *testing.T) {
	t.Run("disabled without a key", func(t *testing.T) {
		app := setupAppWithKey(t, "")

		rec := app.do("POST", "/api/v1/pipeline/payroll/run", "", map[string]string{"X-API-Key": "anything"})

		expectStatus(t, rec, http.StatusServiceUnavailable)
		expectErrorCode(t, rec, apperrors.ErrPipelineNotConfigured.Code)
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		app := setupApp(t)

		rec := app.do("POST", "/api/v1/pipeline/payroll/run", "", map[string]string{"X-API-Key": "wrong"})

		expectStatus(t, rec, http.StatusUnauthorized)
		expectErrorCode(t, rec, apperrors.ErrInvalidAPIKey.Code)

		rec = app.do("POST", "/api/v1/pipeline/budgets/"+testBudgetPath+"/payroll", "", nil)
		expectStatus(t, rec, http.StatusUnauthorized)
		expectErrorCode(t, rec, apperrors.ErrInvalidAPIKey.Code)
	})

	t.Run("runs due payrolls once per month", func(t *testing.T) {
		app := setupApp(t)
		token, _, _ := app.registerUser(t, "pipeline@test.com")
		paid := app.createBudget(t, token, "Paid", "500")
		app.createBudget(t, token, "Unpaid", "0")
		key := map[string]string{"X-API-Key": testAPIKey}
		body := `{"as_of":"2024-05-04T10:00:00Z"}`

		rec := app.do("POST", "/api/v1/pipeline/payroll/run", body, key)
		expectStatus(t, rec, http.StatusOK)
		batch := parseJSON(t, rec)["payroll"].(map[string]interface{})
		if batch["posted"].(float64) != 1 || batch["period"] != "2024-05" {
			t.Errorf("unexpected batch %v", batch)
		}

		rec = app.do("POST", "/api/v1/pipeline/payroll/run", body, key)
		expectStatus(t, rec, http.StatusOK)
		if posted := parseJSON(t, rec)["payroll"].(map[string]interface{})["posted"].(float64); posted != 0 {
			t.Errorf("expected nothing due on the second run, got %v", posted)
		}

		rec = app.do("POST", "/api/v1/pipeline/budgets/"+paid+"/payroll", `{"as_of":"2024-06-01T00:00:00Z"}`, key)
		expectStatus(t, rec, http.StatusOK)
		if got := app.balance(t, token, paid); got != 1000 {
			t.Errorf("expected two monthly credits, got balance %v", got)
		}
	})
}

func (app *testApp) mcpCall(t *testing.T, apiKey, method, params string) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":%q,"params":%s}`, method, params)
	rec := app.do("POST", "/api/v1/mcp", body, map[string]string{"X-API-Key": apiKey})
	expectStatus(t, rec, http.StatusOK)
	return parseJSON(t, rec)
}

func toolText(t *testing.T, resp map[string]interface{}) string {
	t.Helper()
	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a result, got %v", resp)
	}
	return result["content"].([]interface{})[0].(map[string]interface{})["text"].(string)
}

func TestAPIKeyFlow_MCP(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "mcp@test.com")
	budgetID := app.createBudget(t, token, "Groceries", "0")

	rec := app.request("POST", "/api/v1/api-keys", `{"name":"assistant"}`, token)
	expectStatus(t, rec, http.StatusCreated)
	created := parseJSON(t, rec)
	apiKey := created["token"].(string)
	keyID := created["api_key"].(map[string]interface{})["id"].(string)

	rec = app.request("GET", "/api/v1/api-keys", "", token)
	expectStatus(t, rec, http.StatusOK)
	if strings.Contains(rec.Body.String(), apiKey) {
		t.Error("listing must not reveal the token")
	}
	if keys := parseJSON(t, rec)["api_keys"].([]interface{}); len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(keys))
	}

	hello := app.mcpCall(t, apiKey, "initialize", `{}`)
	if hello["result"].(map[string]interface{})["protocolVersion"] != "2024-11-05" {
		t.Errorf("unexpected initialize result: %v", hello)
	}

	listed := toolText(t, app.mcpCall(t, apiKey, "tools/call", `{"name":"list_budgets"}`))
	if !strings.Contains(listed, budgetID) {
		t.Errorf("expected budget %s in %s", budgetID, listed)
	}

	added := app.mcpCall(t, apiKey, "tools/call",
		`{"name":"add_transaction","arguments":{"budget_id":"`+budgetID+`","description":"Bread","amount":3.25,"credit":false}}`)
	if !strings.Contains(toolText(t, added), `"description":"Bread"`) {
		t.Errorf("unexpected add_transaction result: %v", added)
	}
	if got := app.balance(t, token, budgetID); got != -3.25 {
		t.Errorf("expected balance -3.25, got %v", got)
	}

	var audited int64
	app.DB.Model(&models.AuditLog{}).Where("action = ?", "CREATE_TRANSACTION").Count(&audited)
	if audited != 1 {
		t.Errorf("expected the mcp transaction to be audited, got %d entries", audited)
	}

	// Another user's budget is reported as missing.
	otherToken, _, _ := app.registerUser(t, "other@test.com")
	otherBudget := app.createBudget(t, otherToken, "Private", "0")
	denied := app.mcpCall(t, apiKey, "tools/call",
		`{"name":"add_transaction","arguments":{"budget_id":"`+otherBudget+`","description":"x","amount":1,"credit":true}}`)
	if code := denied["error"].(map[string]interface{})["code"].(float64); code != -32004 {
		t.Errorf("expected -32004, got %v", code)
	}

	// Keys and JWTs are not interchangeable.
	rec = app.do("POST", "/api/v1/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, map[string]string{"Authorization": "Bearer " + token})
	expectStatus(t, rec, http.StatusUnauthorized)
	expectErrorCode(t, rec, apperrors.ErrInvalidAPIKey.Code)
	rec = app.request("GET", "/api/v1/budgets", "", apiKey)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = app.request("DELETE", "/api/v1/api-keys/"+keyID, "", token)
	expectStatus(t, rec, http.StatusOK)
	rec = app.do("POST", "/api/v1/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, map[string]string{"X-API-Key": apiKey})
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestPasskeyFlow_Ceremonies(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "passkey@test.com")

	rec := app.request("POST", "/api/v1/passkeys/register/begin", "", token)
	expectStatus(t, rec, http.StatusOK)
	publicKey, ok := parseJSON(t, rec)["publicKey"].(map[string]interface{})
	if !ok || publicKey["challenge"] == "" {
		t.Fatalf("expected creation options, got %s", rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/passkeys/register/begin", "", "")
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = app.request("GET", "/api/v1/passkeys", "", token)
	expectStatus(t, rec, http.StatusNotFound)
	expectErrorCode(t, rec, apperrors.ErrPasskeyNotFound.Code)

	rec = app.request("POST", "/api/v1/auth/passkeys/login/begin", "", "")
	expectStatus(t, rec, http.StatusOK)
	begin := parseJSON(t, rec)
	sessionID, _ := begin["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("expected a session id, got %v", begin)
	}

	rec = app.request("POST", "/api/v1/auth/passkeys/login/finish", `{"session_id":"`+sessionID+`","id":"x","type":"public-key"}`, "")
	expectStatus(t, rec, http.StatusUnauthorized)
	expectErrorCode(t, rec, apperrors.ErrPasskeyRejected.Code)

	rec = app.request("POST", "/api/v1/auth/passkeys/login/finish", `{"session_id":"`+sessionID+`"}`, "")
	expectStatus(t, rec, http.StatusUnauthorized)
	expectErrorCode(t, rec, apperrors.ErrPasskeySession.Code)
}
