package handler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/bank-reconciliation/internal/api/service"
	"github.com/bank-reconciliation/internal/domain/transaction"
	"github.com/bank-reconciliation/internal/reconciliation"
)

// payloadDateLayout is the date form accepted in JSON admission requests.
// Statement uploads go through the ingestion parser, which is more lenient.
const payloadDateLayout = "2006-01-02"

// StatementHandler handles HTTP requests that feed the pending pools:
// statement uploads, direct admissions, and pool listings.
type StatementHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *StatementHandler {
	return &StatementHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// Admit accepts structured transactions for one side. IDs are optional;
// missing ones are minted during admission. Duplicates are skipped per item
// and reported, never failing the batch.
func (h *StatementHandler) Admit(c *gin.Context) {
	var req AdmitTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	origin, err := transaction.ParseOrigin(req.Origin)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	txs := make([]transaction.Transaction, 0, len(req.Transactions))
	for i, payload := range req.Transactions {
		tx, err := mapPayloadToTransaction(payload, origin)
		if err != nil {
			RespondBadRequest(c, fmt.Sprintf("transaction %d: %s", i, err.Error()))
			return
		}
		txs = append(txs, tx)
	}

	result, err := h.reconciliationService.AdmitTransactions(c.Request.Context(), txs)
	if err != nil {
		h.logger.Error("Failed to admit transactions", "origin", string(origin), "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapAdmitResultToResponse(result))
}

// Upload ingests a statement file for the side named in the path. The side
// is always taken from the URL, never guessed from the file.
func (h *StatementHandler) Upload(c *gin.Context) {
	origin, err := transaction.ParseOrigin(c.Param("side"))
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.logger.Error("Missing statement file in upload", "origin", string(origin), "error", err)
		RespondBadRequest(c, "A statement file is required in the 'file' form field")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded statement", "origin", string(origin), "error", err)
		RespondInternalError(c)
		return
	}
	defer file.Close()

	result, err := h.reconciliationService.IngestStatement(c.Request.Context(), origin, file)
	if err != nil {
		h.logger.Error("Failed to ingest statement",
			"origin", string(origin),
			"filename", fileHeader.Filename,
			"error", err,
		)
		RespondBadRequest(c, "Failed to ingest statement: "+err.Error())
		return
	}

	RespondCreated(c, mapAdmitResultToResponse(result))
}

// Pending lists one side's pending pool in insertion order
func (h *StatementHandler) Pending(c *gin.Context) {
	origin, err := transaction.ParseOrigin(c.Param("side"))
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	pending, err := h.reconciliationService.Pending(origin)
	if err != nil {
		h.logger.Error("Failed to list pending transactions", "origin", string(origin), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TransactionResponse, 0, len(pending))
	for _, tx := range pending {
		responses = append(responses, mapTransactionToResponse(tx))
	}
	RespondOK(c, responses)
}

// mapPayloadToTransaction converts a request payload into a domain
// transaction, validating amount and date formats
func mapPayloadToTransaction(payload TransactionPayload, origin transaction.Origin) (transaction.Transaction, error) {
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return transaction.Transaction{}, fmt.Errorf("invalid amount %q", payload.Amount)
	}

	var date *time.Time
	if payload.Date != "" {
		parsed, err := time.Parse(payloadDateLayout, payload.Date)
		if err != nil {
			return transaction.Transaction{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", payload.Date)
		}
		parsed = parsed.UTC()
		date = &parsed
	}

	return transaction.Transaction{
		ID:          payload.ID,
		Date:        date,
		Description: payload.Description,
		Amount:      amount,
		Origin:      origin,
	}, nil
}

// mapTransactionToResponse maps a domain transaction to its response DTO
func mapTransactionToResponse(tx transaction.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:          tx.ID,
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Origin:      string(tx.Origin),
	}
	if tx.Date != nil {
		response.Date = tx.Date.Format(payloadDateLayout)
	}
	return response
}

// mapAdmitResultToResponse maps an admission outcome to its response DTO
func mapAdmitResultToResponse(result reconciliation.AdmitResult) AdmitResponse {
	response := AdmitResponse{
		Admitted: make([]TransactionResponse, 0, len(result.Admitted)),
	}
	for _, tx := range result.Admitted {
		response.Admitted = append(response.Admitted, mapTransactionToResponse(tx))
	}
	for _, skipped := range result.Skipped {
		response.Skipped = append(response.Skipped, SkippedAdmissionResponse{
			ID:     skipped.ID,
			Reason: skipped.Reason,
		})
	}
	return response
}
