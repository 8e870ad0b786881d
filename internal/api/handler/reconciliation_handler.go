package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bank-reconciliation/internal/api/middleware"
	"github.com/bank-reconciliation/internal/api/service"
	"github.com/bank-reconciliation/internal/domain/match"
)

// ReconciliationHandler handles HTTP requests for match operations, the
// matched ledger, the report, and the administrative reset.
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// MatchManual pairs one bank transaction with one accounting transaction
func (h *ReconciliationHandler) MatchManual(c *gin.Context) {
	var req ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reconciliationService.MatchOneToOne(
		c.Request.Context(),
		middleware.GetCorrelationID(c),
		req.BankTransactionID,
		req.AccountingTransactionID,
	)
	if err != nil {
		h.respondMatchError(c, err)
		return
	}

	RespondOK(c, mapMatchResultToResponse(result))
}

// MatchOneToMany pairs one bank transaction against several accounting ones
func (h *ReconciliationHandler) MatchOneToMany(c *gin.Context) {
	var req OneToManyMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reconciliationService.MatchOneToMany(
		c.Request.Context(),
		middleware.GetCorrelationID(c),
		req.BankTransactionID,
		req.AccountingTransactionIDs,
	)
	if err != nil {
		h.respondMatchError(c, err)
		return
	}

	RespondOK(c, mapMatchResultToResponse(result))
}

// MatchManyToOne pairs several bank transactions against one accounting one
func (h *ReconciliationHandler) MatchManyToOne(c *gin.Context) {
	var req ManyToOneMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.reconciliationService.MatchManyToOne(
		c.Request.Context(),
		middleware.GetCorrelationID(c),
		req.BankTransactionIDs,
		req.AccountingTransactionID,
	)
	if err != nil {
		h.respondMatchError(c, err)
		return
	}

	RespondOK(c, mapMatchResultToResponse(result))
}

// MatchAuto runs one automatic matching pass. Finding nothing to match is a
// successful pass with an empty pair list, not an error.
func (h *ReconciliationHandler) MatchAuto(c *gin.Context) {
	result, err := h.reconciliationService.MatchAuto(c.Request.Context(), middleware.GetCorrelationID(c))
	if err != nil {
		h.respondMatchError(c, err)
		return
	}

	RespondOK(c, mapMatchResultToResponse(result))
}

// Matched lists the in-memory matched ledger in append order
func (h *ReconciliationHandler) Matched(c *gin.Context) {
	pairs := h.reconciliationService.MatchedPairs()

	responses := make([]MatchedPairResponse, 0, len(pairs))
	for _, pair := range pairs {
		responses = append(responses, mapPairToResponse(pair))
	}
	RespondOK(c, responses)
}

// MatchedArchive lists the durable match archive, newest first, paginated
func (h *ReconciliationHandler) MatchedArchive(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.reconciliationService.ArchivedMatches(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list archived matches", "error", err)
		RespondInternalError(c)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, entries, pagination.Page, pagination.PerPage, int(total))
}

// Report returns the reconciliation report built from one engine snapshot
func (h *ReconciliationHandler) Report(c *gin.Context) {
	RespondOK(c, h.reconciliationService.BuildReport())
}

// Clear wipes all reconciliation data. Requires an explicit confirmation
// flag so the reset cannot be triggered by an empty POST.
func (h *ReconciliationHandler) Clear(c *gin.Context) {
	var req ClearDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Clearing all data requires {\"confirm\": true}")
		return
	}

	if err := h.reconciliationService.Clear(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear reconciliation data", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{"cleared": true})
}

// respondMatchError translates the engine's error taxonomy to HTTP statuses
func (h *ReconciliationHandler) respondMatchError(c *gin.Context, err error) {
	var notFound match.ErrNotFound
	var invalidSelection match.ErrInvalidSelection

	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, notFound.Error())
	case errors.As(err, &invalidSelection):
		RespondBadRequest(c, invalidSelection.Error())
	default:
		h.logger.Error("Match operation failed", "error", err)
		RespondInternalError(c)
	}
}

// mapPairToResponse maps a matched pair to its response DTO
func mapPairToResponse(pair match.MatchedPair) MatchedPairResponse {
	return MatchedPairResponse{
		BankTransactionID:       pair.BankTransactionID,
		AccountingTransactionID: pair.AccountingTransactionID,
		MatchedAt:               pair.MatchedAt.Format(time.RFC3339),
	}
}

// mapMatchResultToResponse maps a match result to its response DTO
func mapMatchResultToResponse(result match.Result) MatchResultResponse {
	response := MatchResultResponse{
		Scenario: string(result.Scenario),
		Pairs:    make([]MatchedPairResponse, 0, len(result.Pairs)),
	}
	for _, pair := range result.Pairs {
		response.Pairs = append(response.Pairs, mapPairToResponse(pair))
	}
	return response
}
