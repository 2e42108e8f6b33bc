package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetbook/internal/money"
	"budgetbook/internal/pagination"
	"budgetbook/internal/services"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService}
}

// TransactionRequest represents the request payload for creating or
// updating a transaction.
type TransactionRequest struct {
	Description string      `json:"description" binding:"required,description"`
	Credit      *bool       `json:"credit" binding:"required"`
	Amount      money.Cents `json:"amount" binding:"required,gt=0" swaggertype:"number"`
}

func (r TransactionRequest) input() services.TransactionInput {
	return services.TransactionInput{
		Description: r.Description,
		Credit:      *r.Credit,
		Amount:      r.Amount,
	}
}

// CreateTransaction handles the creation of a new transaction
// @Summary     Create a transaction
// @Description Record a credit or debit against a budget
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Budget ID"
// @Param       request body TransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	txn, err := h.transactionService.CreateTransaction(c.Request.Context(), userID, budgetID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_TRANSACTION", "transaction", txn.ID, c.ClientIP(),
		map[string]interface{}{"budget_id": budgetID, "credit": txn.Credit, "amount": txn.Amount})

	c.JSON(http.StatusCreated, gin.H{"transaction": txn})
}

// GetTransactions handles listing the transactions of a budget
// @Summary     List transactions
// @Description Get a paginated list of a budget's transactions, newest first
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id          path  string true  "Budget ID"
// @Param       q           query string false "Text in the description, or an exact amount"
// @Param       window_days query int    false "Only the last N days"
// @Param       page        query int    false "Page number (default 1)"
// @Param       page_size   query int    false "Items per page (default 50, max 500)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	windowDays, err := parseWindowDays(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.ListTransactions(c.Request.Context(), userID, budgetID, page,
		services.TransactionFilter{Query: c.Query("q"), WindowDays: windowDays})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction handles the retrieval of a specific transaction
// @Summary     Get transaction by ID
// @Description Get a specific transaction of a budget
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id    path string true "Budget ID"
// @Param       txnId path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction details"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/transactions/{txnId} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, budgetID, txnID, ok := h.transactionPath(c)
	if !ok {
		return
	}

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), userID, budgetID, txnID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// UpdateTransaction handles updating a transaction
// @Summary     Update transaction
// @Description Change the description, direction and amount of a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Budget ID"
// @Param       txnId   path string             true "Transaction ID"
// @Param       request body TransactionRequest true "Transaction details"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/transactions/{txnId} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, budgetID, txnID, ok := h.transactionPath(c)
	if !ok {
		return
	}

	var req TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	txn, err := h.transactionService.UpdateTransaction(c.Request.Context(), userID, budgetID, txnID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_TRANSACTION", "transaction", txnID, c.ClientIP(),
		map[string]interface{}{"description": txn.Description, "credit": txn.Credit, "amount": txn.Amount})

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// DeleteTransaction handles deleting a transaction
// @Summary     Delete transaction
// @Description Delete a transaction from a budget
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id    path string true "Budget ID"
// @Param       txnId path string true "Transaction ID"
// @Success     200 {object} map[string]string "Transaction deleted"
// @Failure     400 {object} ErrorResponse "Invalid ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /budgets/{id}/transactions/{txnId} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, budgetID, txnID, ok := h.transactionPath(c)
	if !ok {
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), userID, budgetID, txnID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_TRANSACTION", "transaction", txnID, c.ClientIP(),
		map[string]interface{}{"budget_id": budgetID})

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted successfully"})
}

// transactionPath reads the caller and both path ids, writing the error
// response itself when one is missing or malformed.
func (h *TransactionHandler) transactionPath(c *gin.Context) (userID, budgetID, txnID string, ok bool) {
	var err error
	if userID, err = getUserID(c); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if budgetID, err = parsePathID(c, "id"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	if txnID, err = parsePathID(c, "txnId"); err != nil {
		respondWithError(c, err)
		return "", "", "", false
	}
	return userID, budgetID, txnID, true
}
