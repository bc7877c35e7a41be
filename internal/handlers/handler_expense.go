package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// expenseHandler handles expense intake and the payout endpoints.
type expenseHandler struct {
	containers Containers
}

func newExpenseHandler(containers Containers) *expenseHandler {
	return &expenseHandler{containers: containers}
}

// registerExpenseRoutes registers routes related to expenses and their disbursement.
func registerExpenseRoutes(rg *gin.RouterGroup, containers Containers) {
	h := newExpenseHandler(containers)

	expenses := rg.Group("/expenses")
	{
		expenses.POST("", h.createExpense)
		expenses.GET("/:expenseID", h.getExpense)
		expenses.POST("/:expenseID/disburse", h.disburse)
		expenses.POST("/:expenseID/reconcile", h.reconcile)
	}
}

// createExpense godoc
// @Summary Register an approved expense
// @Description Stores a payable request and its beneficiaries. Beneficiary amounts must sum to the expense amount within 0.01
// @Tags expenses
// @Accept json
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   expense body dto.CreateExpenseRequest true "Expense with beneficiaries"
// @Success 201 {object} dto.ExpenseResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /expenses [post]
func (h *expenseHandler) createExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := requireUserID(c, logger)
	if !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	expense, err := svc.Disbursement.CreateExpense(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, logger, "Failed to create expense", err)
		return
	}

	logger.Info("Expense created successfully", slog.String("expense_id", expense.ExpenseID),
		slog.Int("beneficiaries", len(expense.Beneficiaries)))
	c.JSON(http.StatusCreated, dto.ToExpenseResponse(expense))
}

// getExpense godoc
// @Summary Get an expense with its beneficiaries
// @Tags expenses
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   expenseID path string true "Expense ID"
// @Success 200 {object} dto.ExpenseResponse
// @Failure 404 {object} dto.ErrorResponse "Expense not found"
// @Security BearerAuth
// @Router /expenses/{expenseID} [get]
func (h *expenseHandler) getExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")

	if _, ok := requireUserID(c, logger); !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	expense, err := svc.Disbursement.GetExpense(c.Request.Context(), expenseID)
	if err != nil {
		respondError(c, logger.With(slog.String("expense_id", expenseID)), "Failed to get expense", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToExpenseResponse(expense))
}

// disburse godoc
// @Summary Disburse an expense
// @Description Verifies the caller's one-time code, locks the expense, pays each unpaid beneficiary and posts one balanced transaction.
// @Description Safe to call again on PARTIALLY_PAID or PAYMENT_FAILED: paid beneficiaries are never paid twice.
// @Tags expenses
// @Accept json
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   expenseID path string true "Expense ID"
// @Param   request body dto.DisburseHTTPRequest true "One-time code and optional source account"
// @Success 200 {object} dto.DisbursementResult
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Invalid or expired code"
// @Failure 403 {object} dto.ErrorResponse "Missing disburse permission"
// @Failure 404 {object} dto.ErrorResponse "Expense not found"
// @Failure 409 {object} dto.ErrorResponse "Expense is not disbursable"
// @Failure 422 {object} dto.ErrorResponse "Insufficient funds"
// @Failure 502 {object} dto.DisbursementErrorResponse "Some or all beneficiaries could not be paid"
// @Security BearerAuth
// @Router /expenses/{expenseID}/disburse [post]
func (h *expenseHandler) disburse(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")

	var body dto.DisburseHTTPRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		logger.Warn("Failed to bind JSON for Disburse", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actingUserID, ok := requireUserID(c, logger)
	if !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	logger = logger.With(slog.String("expense_id", expenseID))
	logger.Info("Received request to disburse expense")

	result, err := svc.Disbursement.Disburse(c.Request.Context(), dto.DisburseRequest{
		ExpenseID:       expenseID,
		SourceAccountID: body.SourceAccountID,
		ActingUserID:    actingUserID,
		Code:            body.Code,
		Mode:            middleware.GetModeFromCtx(c.Request.Context()),
	})
	if err != nil {
		respondError(c, logger, "Failed to disburse expense", err)
		return
	}

	logger.Info("Expense disbursed", slog.String("status", string(result.Status)),
		slog.String("ledger_transaction_id", result.LedgerTransactionID))
	c.JSON(http.StatusOK, result)
}

// reconcile godoc
// @Summary Reconcile an expense with its provider
// @Description Checks every recorded transfer reference at the provider and reports money paid out but not yet posted.
// @Description A PROCESSING_PAYMENT lock older than the stale window is released.
// @Tags expenses
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   expenseID path string true "Expense ID"
// @Success 200 {object} dto.ReconciliationReport
// @Failure 403 {object} dto.ErrorResponse "Missing permission"
// @Failure 404 {object} dto.ErrorResponse "Expense not found"
// @Security BearerAuth
// @Router /expenses/{expenseID}/reconcile [post]
func (h *expenseHandler) reconcile(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	expenseID := c.Param("expenseID")

	actingUserID, ok := requireUserID(c, logger)
	if !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	logger = logger.With(slog.String("expense_id", expenseID))

	report, err := svc.Disbursement.ReconcileExpense(c.Request.Context(), expenseID, actingUserID)
	if err != nil {
		respondError(c, logger, "Failed to reconcile expense", err)
		return
	}

	if !report.UnpostedAmount.IsZero() {
		logger.Warn("Expense has money paid out but not posted", slog.String("unposted", report.UnpostedAmount.String()))
	}
	c.JSON(http.StatusOK, report)
}
