package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/disbursement_ledger/internal/dto"
	"github.com/SscSPs/disbursement_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler handles manual postings and transaction lookups.
type ledgerHandler struct {
	containers Containers
}

func newLedgerHandler(containers Containers) *ledgerHandler {
	return &ledgerHandler{containers: containers}
}

// registerLedgerRoutes registers routes related to ledger transactions.
func registerLedgerRoutes(rg *gin.RouterGroup, containers Containers) {
	h := newLedgerHandler(containers)

	ledger := rg.Group("/ledger")
	{
		ledger.POST("/transactions", h.createTransaction)
		ledger.GET("/transactions/:transactionID", h.getTransaction)
	}
}

// createTransaction godoc
// @Summary Post a balanced transaction
// @Description Posts signed entries (positive debits, negative credits) that must net to zero within 0.01
// @Tags ledger
// @Accept json
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   transaction body dto.CreateTransactionRequest true "Transaction to post"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 500 {object} dto.ErrorResponse "Unbalanced transaction or internal error"
// @Security BearerAuth
// @Router /ledger/transactions [post]
func (h *ledgerHandler) createTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateTransaction", slog.String("error", err.Error()))
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

	logger.Info("Received request to post transaction", slog.Int("entries", len(req.Entries)), slog.String("reference", req.Reference))

	txn, err := svc.Ledger.CreateTransaction(c.Request.Context(), req, creatorUserID)
	if err != nil {
		respondError(c, logger, "Failed to post transaction", err)
		return
	}

	logger.Info("Transaction posted successfully", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// getTransaction godoc
// @Summary Get a transaction
// @Tags ledger
// @Produce json
// @Param   X-Ledger-Mode header string false "live or test" default(live)
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Transaction not found"
// @Security BearerAuth
// @Router /ledger/transactions/{transactionID} [get]
func (h *ledgerHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")

	if _, ok := requireUserID(c, logger); !ok {
		return
	}
	svc, ok := h.containers.forRequest(c)
	if !ok {
		return
	}

	txn, err := svc.Ledger.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		respondError(c, logger.With(slog.String("transaction_id", transactionID)), "Failed to get transaction", err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}
