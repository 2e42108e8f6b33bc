package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"budgetbook/internal/services"
)

// PayrollHandler handles payroll runs, both on behalf of a member and from
// the scheduler pipeline.
type PayrollHandler struct {
	payrollService services.PayrollServicer
	auditService   services.AuditServicer
	now            func() time.Time
}

// NewPayrollHandler creates a new PayrollHandler.
func NewPayrollHandler(payrollService services.PayrollServicer, auditService services.AuditServicer) *PayrollHandler {
	return &PayrollHandler{payrollService: payrollService, auditService: auditService, now: time.Now}
}

// PipelinePayrollRequest optionally pins the moment a pipeline run is for.
type PipelinePayrollRequest struct {
	AsOf *time.Time `json:"as_of"`
}

// RunBudgetPayroll posts the current month's payroll of a budget.
// @Summary     Run payroll for a budget
// @Description Post this month's payroll credit; a second run in the same month is skipped
// @Tags        payroll
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Budget ID"
// @Success     200 {object} services.PayrollResult "Payroll outcome"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Budget not found"
// @Router      /budgets/{id}/payroll [post]
func (h *PayrollHandler) RunBudgetPayroll(c *gin.Context) {
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

	result, err := h.payrollService.RunBudgetPayrollForUser(c.Request.Context(), userID, budgetID, h.now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	if result.Posted {
		h.auditService.Log(userID, "RUN_PAYROLL", "budget", budgetID, c.ClientIP(),
			map[string]interface{}{"period": result.Period, "transaction_id": result.TransactionID})
	}

	c.JSON(http.StatusOK, gin.H{"payroll": result})
}

// RunDuePayrolls posts payroll for every budget that has not been paid this month.
// @Summary     Run due payrolls
// @Description Post payroll for every due budget (pipeline endpoint)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string                 true  "Pipeline API key"
// @Param       request   body     PipelinePayrollRequest false "Run parameters"
// @Success     200       {object} services.PayrollBatchResult "Batch outcome"
// @Failure     400       {object} ErrorResponse "Invalid input"
// @Failure     401       {object} ErrorResponse "Invalid API key"
// @Failure     503       {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/payroll/run [post]
func (h *PayrollHandler) RunDuePayrolls(c *gin.Context) {
	now, err := h.pipelineTime(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	// Failures of single budgets are reported in the batch; the error only
	// repeats them.
	batch, err := h.payrollService.RunDuePayrolls(c.Request.Context(), now)
	if batch == nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payroll": batch})
}

// RunPipelineBudgetPayroll posts payroll for one budget without a member check.
// @Summary     Run payroll for a budget (pipeline)
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header   string                 true  "Pipeline API key"
// @Param       id        path     string                 true  "Budget ID"
// @Param       request   body     PipelinePayrollRequest false "Run parameters"
// @Success     200       {object} services.PayrollResult "Payroll outcome"
// @Failure     401       {object} ErrorResponse "Invalid API key"
// @Failure     404       {object} ErrorResponse "Budget not found"
// @Failure     503       {object} ErrorResponse "Pipeline not configured"
// @Router      /pipeline/budgets/{id}/payroll [post]
func (h *PayrollHandler) RunPipelineBudgetPayroll(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	now, err := h.pipelineTime(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.payrollService.RunBudgetPayroll(c.Request.Context(), budgetID, now)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payroll": result})
}

func (h *PayrollHandler) pipelineTime(c *gin.Context) (time.Time, error) {
	if c.Request.ContentLength == 0 {
		return h.now(), nil
	}
	var req PipelinePayrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return time.Time{}, bindError(err)
	}
	if req.AsOf == nil {
		return h.now(), nil
	}
	return *req.AsOf, nil
}
