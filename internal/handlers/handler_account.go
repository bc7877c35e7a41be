package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/SscSPs/disbursement_ledger/internal/utils/accounting"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to accounts.
type accountHandler struct {
	containers Containers
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(containers Containers) *accountHandler {
	return &accountHandler{
		containers: containers,
	}
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, containers Containers) {
	h := newAccountHandler(containers)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("/:accountID", h.getAccount)
		accounts.GET("/:accountID/balance", h.getAccountBalance)
		accounts.GET("/:accountID/reconciliation", h.recomputeAccountBalance)
		accounts.POST("/:accountID/resolve", h.resolveAccountHolder)
	}
}

// createAccount godoc
// @Summary Create a new account
// @Description Creates a ledger account, optionally bound to a payment provider wallet
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   account body dto.CreateAccountRequest true "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input format or validation error"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 409 {object} dto.ErrorResponse "Account code already in use"
// @Failure 500 {object} dto.ErrorResponse "Failed to create account"
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
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

	logger.Info("Received request to create account", slog.String("account_code", req.Code), slog.String("currency_code", req.CurrencyCode))

	newAccount, err := svc.Account.CreateAccount(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, logger, "Failed to create account", err)
		return
	}

	logger.Info("Account created successfully", slog.String("account_id", newAccount.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(newAccount,
		accounting.DisplayBalance(newAccount.Balance, newAccount.AccountType)))
}

// getAccount godoc
// @Summary Get an account by ID
// @Description Retrieves details for a specific account by its ID
// @Tags accounts
// @Produce  json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to retrieve account"
// @Security BearerAuth
// @Router /accounts/{accountID} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	if _, ok := requireUserID(c, logger); !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	logger = logger.With(slog.String("target_account_id", accountID))

	account, err := svc.Account.GetAccountByID(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, logger, "Failed to get account", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAccountResponse(account,
		accounting.DisplayBalance(account.Balance, account.AccountType)))
}

// getAccountBalance godoc
// @Summary Get account balance
// @Description Returns the raw signed balance and the display balance, positive on the account's normal side
// @Tags accounts
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.AccountBalanceResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 500 {object} dto.ErrorResponse "Failed to get balance"
// @Security BearerAuth
// @Router /accounts/{accountID}/balance [get]
func (h *accountHandler) getAccountBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	if _, ok := requireUserID(c, logger); !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	balance, err := svc.Ledger.GetAccountBalance(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, logger.With(slog.String("target_account_id", accountID)), "Failed to get account balance", err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

// recomputeAccountBalance godoc
// @Summary Check a stored balance against its entries
// @Tags accounts
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.BalanceReconciliationResponse
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{accountID}/reconciliation [get]
func (h *accountHandler) recomputeAccountBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	if _, ok := requireUserID(c, logger); !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	rec, err := svc.Ledger.RecomputeAccountBalance(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, logger.With(slog.String("target_account_id", accountID)), "Failed to recompute balance", err)
		return
	}
	if !rec.Drift.IsZero() {
		logger.Error("Stored balance drifted from entries",
			slog.String("account_id", accountID), slog.String("drift", rec.Drift.String()))
	}

	c.JSON(http.StatusOK, rec)
}

// resolveAccountHolder godoc
// @Summary Resolve a bank account holder
// @Description Runs a name enquiry through the payment provider bound to the account
// @Tags accounts
// @Accept json
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   accountID path string true "Provider-bound account ID"
// @Param   request body dto.ResolveAccountHolderRequest true "Bank account"
// @Success 200 {object} domain.AccountHolder
// @Failure 400 {object} dto.ErrorResponse "Invalid input or account has no provider"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 502 {object} dto.ErrorResponse "Provider could not resolve the account"
// @Security BearerAuth
// @Router /accounts/{accountID}/resolve [post]
func (h *accountHandler) resolveAccountHolder(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("accountID")

	var req dto.ResolveAccountHolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ResolveAccountHolder", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	if _, ok := requireUserID(c, logger); !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	holder, err := svc.Disbursement.ResolveAccountHolder(c.Request.Context(), accountID, req)
	if err != nil {
		respondError(c, logger.With(slog.String("target_account_id", accountID)), "Failed to resolve account holder", err)
		return
	}

	c.JSON(http.StatusOK, holder)
}
