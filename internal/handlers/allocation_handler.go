package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"budgetbook/internal/allocation"
	apperrors "budgetbook/internal/errors"
	"budgetbook/internal/money"
	"budgetbook/internal/services"
)

// AllocationHandler handles requests that post to several budgets at once.
type AllocationHandler struct {
	allocationService services.AllocationServicer
	auditService      services.AuditServicer
}

// NewAllocationHandler creates a new AllocationHandler.
func NewAllocationHandler(allocationService services.AllocationServicer, auditService services.AuditServicer) *AllocationHandler {
	return &AllocationHandler{allocationService: allocationService, auditService: auditService}
}

// LineItemRequest is one line of an itemized receipt.
type LineItemRequest struct {
	BudgetID    string      `json:"budget_id" binding:"omitempty,uuid"`
	Description string      `json:"description" binding:"max=500"`
	Amount      money.Cents `json:"amount" swaggertype:"number"`
}

// ItemizeRequest represents the request payload for an itemized receipt.
type ItemizeRequest struct {
	Description      string            `json:"description" binding:"max=500"`
	Total            money.Cents       `json:"total" binding:"required,gt=0" swaggertype:"number"`
	CatchAllBudgetID string            `json:"catch_all_budget_id" binding:"omitempty,uuid"`
	Items            []LineItemRequest `json:"items" binding:"required,min=1,dive"`
}

// RebalanceRequest represents the request payload for a rebalance.
type RebalanceRequest struct {
	DeficitBudgetIDs []string `json:"deficit_budget_ids" binding:"required,min=1,uuid_list"`
	SurplusBudgetIDs []string `json:"surplus_budget_ids" binding:"required,min=1,uuid_list"`
	Description      string   `json:"description" binding:"max=500"`
}

// Itemize posts one debit per receipt line plus a catch-all for the rest.
// @Summary     Post an itemized receipt
// @Description Split a receipt total across budgets; the remainder goes to the catch-all budget
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ItemizeRequest true "Receipt"
// @Success     201 {object} services.AllocationResult "Every posting written"
// @Success     207 {object} services.AllocationResult "Some postings written"
// @Failure     400 {object} ErrorResponse "Invalid allocation"
// @Failure     403 {object} ErrorResponse "Not a member of a referenced budget"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /allocations/itemize [post]
func (h *AllocationHandler) Itemize(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ItemizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	items := make([]allocation.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = allocation.LineItem{BudgetID: item.BudgetID, Description: item.Description, Amount: item.Amount}
	}

	result, err := h.allocationService.Itemize(c.Request.Context(), userID, allocation.ItemizeRequest{
		Total:            req.Total,
		Description:      req.Description,
		Items:            items,
		CatchAllBudgetID: req.CatchAllBudgetID,
	})
	h.respond(c, userID, "ITEMIZE", result, err)
}

// Rebalance moves money from surplus budgets to zero the deficit budgets.
// @Summary     Post a rebalance
// @Description Cover the deficits of the selected budgets from the selected surpluses
// @Tags        allocations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body RebalanceRequest true "Budgets to balance"
// @Success     201 {object} services.AllocationResult "Every posting written"
// @Success     207 {object} services.AllocationResult "Some postings written"
// @Failure     400 {object} ErrorResponse "Invalid allocation"
// @Failure     403 {object} ErrorResponse "Not a member of a referenced budget"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /allocations/rebalance [post]
func (h *AllocationHandler) Rebalance(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RebalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.allocationService.Rebalance(c.Request.Context(), userID, services.RebalanceInput{
		DeficitBudgetIDs: req.DeficitBudgetIDs,
		SurplusBudgetIDs: req.SurplusBudgetIDs,
		Description:      req.Description,
	})
	h.respond(c, userID, "REBALANCE", result, err)
}

// respond writes 201 for a fully posted plan and 207 with the error next to
// the plan and report when only part of it was written.
func (h *AllocationHandler) respond(c *gin.Context, userID, action string, result *services.AllocationResult, err error) {
	if result != nil && len(result.Report.Succeeded) > 0 {
		txnIDs := make([]string, len(result.Report.Succeeded))
		for i, p := range result.Report.Succeeded {
			txnIDs[i] = p.TransactionID
		}
		h.auditService.Log(userID, action, "allocation", "", c.ClientIP(),
			map[string]interface{}{"budget_ids": result.Plan.BudgetIDs, "transaction_ids": txnIDs})
	}

	if err == nil {
		c.JSON(http.StatusCreated, result)
		return
	}

	var appErr *apperrors.AppError
	if result != nil && errors.As(err, &appErr) && errors.Is(err, apperrors.ErrPartialPosting) {
		c.JSON(appErr.StatusCode, gin.H{
			"error":  gin.H{"code": appErr.Code, "message": appErr.Message},
			"plan":   result.Plan,
			"report": result.Report,
		})
		return
	}
	respondWithError(c, err)
}
