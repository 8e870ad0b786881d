package handler

// TransactionPayload represents one transaction in an admission request.
// Amount is a string so the client's exact decimal precision survives; Date
// is optional and expected in YYYY-MM-DD form when present.
type TransactionPayload struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount" binding:"required"`
}

// AdmitTransactionsRequest represents a request to admit transactions into
// one side's pending pool
type AdmitTransactionsRequest struct {
	Origin       string               `json:"origin" binding:"required,oneof=bank accounting"`
	Transactions []TransactionPayload `json:"transactions" binding:"required,min=1,dive"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Origin      string `json:"origin"`
}

// SkippedAdmissionResponse reports one transaction rejected during admission
type SkippedAdmissionResponse struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// AdmitResponse represents the outcome of an admission batch
type AdmitResponse struct {
	Admitted []TransactionResponse      `json:"admitted"`
	Skipped  []SkippedAdmissionResponse `json:"skipped,omitempty"`
}

// ManualMatchRequest represents a one-to-one match request
type ManualMatchRequest struct {
	BankTransactionID       string `json:"bank_transaction_id" binding:"required"`
	AccountingTransactionID string `json:"accounting_transaction_id" binding:"required"`
}

// OneToManyMatchRequest pairs one bank transaction against several
// accounting transactions
type OneToManyMatchRequest struct {
	BankTransactionID        string   `json:"bank_transaction_id" binding:"required"`
	AccountingTransactionIDs []string `json:"accounting_transaction_ids" binding:"required,min=1"`
}

// ManyToOneMatchRequest pairs several bank transactions against one
// accounting transaction
type ManyToOneMatchRequest struct {
	BankTransactionIDs      []string `json:"bank_transaction_ids" binding:"required,min=1"`
	AccountingTransactionID string   `json:"accounting_transaction_id" binding:"required"`
}

// MatchedPairResponse represents one matched pair in API responses
type MatchedPairResponse struct {
	BankTransactionID       string `json:"bank_transaction_id"`
	AccountingTransactionID string `json:"accounting_transaction_id"`
	MatchedAt               string `json:"matched_at"`
}

// MatchResultResponse represents the outcome of a match operation
type MatchResultResponse struct {
	Scenario string                `json:"scenario"`
	Pairs    []MatchedPairResponse `json:"pairs"`
}

// ClearDataRequest guards the administrative reset; the request fails unless
// confirm is explicitly true
type ClearDataRequest struct {
	Confirm bool `json:"confirm" binding:"required"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
