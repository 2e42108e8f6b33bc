package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/logger"
	"budgetbook/internal/money"
	"budgetbook/internal/services"
	"budgetbook/internal/uuid"
)

// MCPProtocolVersion is the Model Context Protocol revision the endpoint speaks.
const MCPProtocolVersion = "2024-11-05"

// JSON-RPC error codes used by the MCP endpoint.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32000
	rpcUnauthorized   = -32001
	rpcBudgetNotFound = -32004
)

// MCPHandler exposes a small set of budget tools over JSON-RPC 2.0 so that
// assistant clients can read budgets and record spending with an API key.
type MCPHandler struct {
	budgetService      services.BudgetServicer
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewMCPHandler creates a new MCPHandler.
func NewMCPHandler(budgetService services.BudgetServicer, transactionService services.TransactionServicer, auditService services.AuditServicer) *MCPHandler {
	return &MCPHandler{budgetService: budgetService, transactionService: transactionService, auditService: auditService}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type mcpTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var mcpTools = []mcpTool{
	{
		Name:        "list_budgets",
		Description: "List the budgets the API key's owner is a member of, with balances.",
		InputSchema: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		},
	},
	{
		Name:        "add_transaction",
		Description: "Record a credit or debit against a budget the API key's owner can access.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"budget_id":   map[string]any{"type": "string", "format": "uuid"},
				"description": map[string]any{"type": "string"},
				"amount":      map[string]any{"type": "number", "exclusiveMinimum": 0},
				"credit":      map[string]any{"type": "boolean"},
			},
			"required":             []string{"budget_id", "description", "amount", "credit"},
			"additionalProperties": false,
		},
	},
}

type mcpBudget struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Balance money.Cents `json:"balance"`
	Payroll money.Cents `json:"payroll"`
}

type mcpTransaction struct {
	ID          string      `json:"id"`
	BudgetID    string      `json:"budget_id"`
	Description string      `json:"description"`
	Credit      bool        `json:"credit"`
	Amount      money.Cents `json:"amount"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Serve handles a single JSON-RPC request.
// @Summary     MCP endpoint
// @Description JSON-RPC 2.0 endpoint for Model Context Protocol clients. Supports initialize, ping, tools/list and tools/call with the list_budgets and add_transaction tools.
// @Tags        mcp
// @Accept      json
// @Produce     json
// @Security    ApiKeyAuth
// @Success     200 {object} map[string]interface{} "JSON-RPC response"
// @Failure     401 {object} ErrorResponse "Invalid or missing API key"
// @Router      /mcp [post]
func (h *MCPHandler) Serve(c *gin.Context) {
	var req rpcRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		writeRPCError(c, nil, rpcParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != "2.0" {
		writeRPCError(c, req.ID, rpcInvalidRequest, "invalid jsonrpc version")
		return
	}

	// Notifications expect no response body.
	if strings.HasPrefix(req.Method, "notifications/") {
		c.Status(http.StatusAccepted)
		return
	}

	switch req.Method {
	case "initialize":
		writeRPCResult(c, req.ID, gin.H{
			"protocolVersion": MCPProtocolVersion,
			"serverInfo":      gin.H{"name": "Budgetbook MCP", "version": "1.0"},
			"capabilities":    gin.H{"tools": gin.H{}},
		})
	case "ping":
		writeRPCResult(c, req.ID, gin.H{"now": time.Now().UTC()})
	case "tools/list":
		writeRPCResult(c, req.ID, gin.H{"tools": mcpTools})
	case "tools/call":
		h.callTool(c, req.ID, req.Params)
	default:
		writeRPCError(c, req.ID, rpcMethodNotFound, "method not found")
	}
}

func (h *MCPHandler) callTool(c *gin.Context, id any, params json.RawMessage) {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		writeRPCError(c, id, rpcInvalidParams, "invalid tool call payload")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		writeRPCError(c, id, rpcUnauthorized, "unauthorized")
		return
	}

	switch call.Name {
	case "list_budgets":
		h.listBudgets(c, id, userID)
	case "add_transaction":
		h.addTransaction(c, id, userID, call.Arguments)
	default:
		writeRPCError(c, id, rpcMethodNotFound, "unknown tool")
	}
}

func (h *MCPHandler) listBudgets(c *gin.Context, id any, userID string) {
	budgets, err := h.budgetService.ListBudgets(c.Request.Context(), userID)
	if err != nil {
		writeToolError(c, id, err, "failed to list budgets")
		return
	}

	out := make([]mcpBudget, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, mcpBudget{ID: b.ID, Name: b.Name, Balance: b.Balance, Payroll: b.Payroll})
	}
	writeToolResult(c, id, out)
}

func (h *MCPHandler) addTransaction(c *gin.Context, id any, userID string, args json.RawMessage) {
	var req struct {
		BudgetID    string      `json:"budget_id"`
		Description string      `json:"description"`
		Amount      money.Cents `json:"amount"`
		Credit      bool        `json:"credit"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		writeRPCError(c, id, rpcInvalidParams, "invalid arguments")
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if !uuid.IsValid(req.BudgetID) || req.Description == "" || req.Amount <= 0 {
		writeRPCError(c, id, rpcInvalidParams, "budget_id, description, and amount must be provided")
		return
	}

	txn, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, req.BudgetID, services.TransactionInput{
		Description: req.Description,
		Credit:      req.Credit,
		Amount:      req.Amount,
	})
	if err != nil {
		writeToolError(c, id, err, "failed to create transaction")
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", txn.ID, c.ClientIP(),
		map[string]interface{}{"budget_id": txn.BudgetID, "amount": txn.Amount, "credit": txn.Credit, "via": "mcp"})

	writeToolResult(c, id, mcpTransaction{
		ID:          txn.ID,
		BudgetID:    txn.BudgetID,
		Description: txn.Description,
		Credit:      txn.Credit,
		Amount:      txn.Amount,
		CreatedAt:   txn.CreatedAt,
	})
}

// writeToolError maps service errors onto JSON-RPC codes. Budgets the caller
// cannot access are reported as missing.
func writeToolError(c *gin.Context, id any, err error, fallback string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrBudgetNotFound.Code, apperrors.ErrForbidden.Code:
			writeRPCError(c, id, rpcBudgetNotFound, "budget not found")
			return
		case apperrors.ErrInvalidInput.Code:
			writeRPCError(c, id, rpcInvalidParams, appErr.Message)
			return
		}
	}
	logger.Get().Errorw("mcp tool call failed", "error", err, "path", c.Request.URL.Path)
	writeRPCError(c, id, rpcInternalError, fallback)
}

func writeToolResult(c *gin.Context, id any, payload any) {
	text, err := json.Marshal(payload)
	if err != nil {
		writeRPCError(c, id, rpcInternalError, "failed to encode result")
		return
	}
	writeRPCResult(c, id, gin.H{
		"content": []gin.H{{"type": "text", "text": string(text)}},
	})
}

func writeRPCResult(c *gin.Context, id any, result any) {
	c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeRPCError(c *gin.Context, id any, code int, message string) {
	c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}
