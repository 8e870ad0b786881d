package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bank-reconciliation/internal/domain/match"
	"github.com/bank-reconciliation/internal/domain/transaction"
	"github.com/bank-reconciliation/internal/report"
)

func TestReconciliationHandler_MatchManual(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		result := match.Result{
			Scenario: match.ScenarioOneToOne,
			Pairs: []match.MatchedPair{
				{BankTransactionID: "b-1", AccountingTransactionID: "a-1", MatchedAt: time.Now().UTC()},
			},
		}
		mockService.On("MatchOneToOne", mock.Anything, mock.Anything, "b-1", "a-1").Return(result, nil)

		router := gin.Default()
		router.POST("/reconcile/manual", handler.MatchManual)

		reqBody := ManualMatchRequest{BankTransactionID: "b-1", AccountingTransactionID: "a-1"}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/reconcile/manual", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		respBody := decodeData[MatchResultResponse](t, rr.Body.Bytes())
		assert.Equal(t, "ONE_TO_ONE", respBody.Scenario)
		require.Len(t, respBody.Pairs, 1)
		assert.Equal(t, "b-1", respBody.Pairs[0].BankTransactionID)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingField", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		router := gin.Default()
		router.POST("/reconcile/manual", handler.MatchManual)

		reqBody := ManualMatchRequest{BankTransactionID: "b-1"}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/reconcile/manual", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("TransactionNotFound", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		notFound := match.ErrNotFound{Origin: transaction.OriginBank, ID: "b-missing"}
		mockService.On("MatchOneToOne", mock.Anything, mock.Anything, "b-missing", "a-1").
			Return(match.Result{}, notFound)

		router := gin.Default()
		router.POST("/reconcile/manual", handler.MatchManual)

		reqBody := ManualMatchRequest{BankTransactionID: "b-missing", AccountingTransactionID: "a-1"}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/reconcile/manual", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "NOT_FOUND", resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "b-missing")
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("MatchOneToOne", mock.Anything, mock.Anything, "b-1", "a-1").
			Return(match.Result{}, errors.New("unexpected"))

		router := gin.Default()
		router.POST("/reconcile/manual", handler.MatchManual)

		reqBody := ManualMatchRequest{BankTransactionID: "b-1", AccountingTransactionID: "a-1"}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/reconcile/manual", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestReconciliationHandler_MatchOneToMany(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		now := time.Now().UTC()
		result := match.Result{
			Scenario: match.ScenarioOneToMany,
			Pairs: []match.MatchedPair{
				{BankTransactionID: "b-1", AccountingTransactionID: "a-1", MatchedAt: now},
				{BankTransactionID: "b-1", AccountingTransactionID: "a-2", MatchedAt: now},
			},
		}
		mockService.On("MatchOneToMany", mock.Anything, mock.Anything, "b-1", []string{"a-1", "a-2"}).
			Return(result, nil)

		router := gin.Default()
		router.POST("/reconcile/one-to-many", handler.MatchOneToMany)

		reqBody := OneToManyMatchRequest{BankTransactionID: "b-1", AccountingTransactionIDs: []string{"a-1", "a-2"}}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/reconcile/one-to-many", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		respBody := decodeData[MatchResultResponse](t, rr.Body.Bytes())
		assert.Equal(t, "ONE_TO_MANY", respBody.Scenario)
		assert.Len(t, respBody.Pairs, 2)
		mockService.AssertExpectations(t)
	})

	t.Run("EmptySelection", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		router := gin.Default()
		router.POST("/reconcile/one-to-many", handler.MatchOneToMany)

		// min=1 binding rejects the empty list before the service is reached.
		reqBody := map[string]interface{}{
			"bank_transaction_id":        "b-1",
			"accounting_transaction_ids": []string{},
		}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/reconcile/one-to-many", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("RepeatedSelection", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		invalid := match.ErrInvalidSelection{Reason: "repeated accounting transaction ID: a-1"}
		mockService.On("MatchOneToMany", mock.Anything, mock.Anything, "b-1", []string{"a-1", "a-1"}).
			Return(match.Result{}, invalid)

		router := gin.Default()
		router.POST("/reconcile/one-to-many", handler.MatchOneToMany)

		reqBody := OneToManyMatchRequest{BankTransactionID: "b-1", AccountingTransactionIDs: []string{"a-1", "a-1"}}
		jsonBody, _ := json.Marshal(reqBody)
		req, _ := http.NewRequest(http.MethodPost, "/reconcile/one-to-many", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Contains(t, resp.Error.Message, "repeated")
		mockService.AssertExpectations(t)
	})
}

func TestReconciliationHandler_MatchManyToOne(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	mockService := new(MockReconciliationService)
	handler := NewReconciliationHandler(logger, mockService)

	now := time.Now().UTC()
	result := match.Result{
		Scenario: match.ScenarioManyToOne,
		Pairs: []match.MatchedPair{
			{BankTransactionID: "b-1", AccountingTransactionID: "a-1", MatchedAt: now},
			{BankTransactionID: "b-2", AccountingTransactionID: "a-1", MatchedAt: now},
		},
	}
	mockService.On("MatchManyToOne", mock.Anything, mock.Anything, []string{"b-1", "b-2"}, "a-1").
		Return(result, nil)

	router := gin.Default()
	router.POST("/reconcile/many-to-one", handler.MatchManyToOne)

	reqBody := ManyToOneMatchRequest{BankTransactionIDs: []string{"b-1", "b-2"}, AccountingTransactionID: "a-1"}
	jsonBody, _ := json.Marshal(reqBody)
	req, _ := http.NewRequest(http.MethodPost, "/reconcile/many-to-one", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	respBody := decodeData[MatchResultResponse](t, rr.Body.Bytes())
	assert.Equal(t, "MANY_TO_ONE", respBody.Scenario)
	assert.Len(t, respBody.Pairs, 2)
	mockService.AssertExpectations(t)
}

func TestReconciliationHandler_MatchAuto(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("EmptyPassIsStillOK", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		mockService.On("MatchAuto", mock.Anything, mock.Anything).
			Return(match.Result{Scenario: match.ScenarioAuto, Pairs: []match.MatchedPair{}}, nil)

		router := gin.Default()
		router.POST("/reconcile/auto", handler.MatchAuto)

		req, _ := http.NewRequest(http.MethodPost, "/reconcile/auto", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		respBody := decodeData[MatchResultResponse](t, rr.Body.Bytes())
		assert.Equal(t, "AUTO", respBody.Scenario)
		assert.Empty(t, respBody.Pairs)
		mockService.AssertExpectations(t)
	})
}

func TestReconciliationHandler_Matched(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	mockService := new(MockReconciliationService)
	handler := NewReconciliationHandler(logger, mockService)

	pairs := []match.MatchedPair{
		{BankTransactionID: "b-1", AccountingTransactionID: "a-1", MatchedAt: time.Now().UTC()},
	}
	mockService.On("MatchedPairs").Return(pairs)

	router := gin.Default()
	router.GET("/matches", handler.Matched)

	req, _ := http.NewRequest(http.MethodGet, "/matches", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	respBody := decodeData[[]MatchedPairResponse](t, rr.Body.Bytes())
	require.Len(t, respBody, 1)
	assert.Equal(t, "b-1", respBody[0].BankTransactionID)
	mockService.AssertExpectations(t)
}

func TestReconciliationHandler_MatchedArchive(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)

		entries := []match.ArchiveEntry{
			{Scenario: match.ScenarioAuto, RecordedAt: time.Now().UTC()},
		}
		mockService.On("ArchivedMatches", mock.Anything, 2, 5).Return(entries, int64(11), nil)

		router := gin.Default()
		router.GET("/matches/archive", handler.MatchedArchive)

		req, _ := http.NewRequest(http.MethodGet, "/matches/archive?page=2&per_page=5", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var respBody PaginatedResponse[match.ArchiveEntry]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &respBody))
		require.NotNil(t, respBody.Meta)
		assert.Equal(t, 2, respBody.Meta.Page)
		assert.Equal(t, 5, respBody.Meta.PerPage)
		assert.Equal(t, 11, respBody.Meta.TotalItems)
		assert.Equal(t, 3, respBody.Meta.TotalPages)
		assert.Len(t, respBody.Data, 1)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		router := gin.Default()
		router.GET("/matches/archive", handler.MatchedArchive)

		req, _ := http.NewRequest(http.MethodGet, "/matches/archive?page=invalid", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestReconciliationHandler_Report(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	mockService := new(MockReconciliationService)
	handler := NewReconciliationHandler(logger, mockService)

	r := report.Build(
		[]transaction.Transaction{
			{ID: "b-1", Amount: decimal.RequireFromString("100.00"), Origin: transaction.OriginBank},
		},
		nil,
		[]match.MatchedPair{{BankTransactionID: "b-0", AccountingTransactionID: "a-0"}},
	)
	mockService.On("BuildReport").Return(r)

	router := gin.Default()
	router.GET("/report", handler.Report)

	req, _ := http.NewRequest(http.MethodGet, "/report", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	respBody := decodeData[report.Report](t, rr.Body.Bytes())
	assert.Equal(t, 1, respBody.Bank.PendingCount)
	assert.Equal(t, 1, respBody.MatchedCount)
	mockService.AssertExpectations(t)
}

func TestReconciliationHandler_Clear(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	gin.SetMode(gin.TestMode)

	t.Run("Confirmed", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		mockService.On("Clear", mock.Anything).Return(nil)

		router := gin.Default()
		router.POST("/admin/clear", handler.Clear)

		req, _ := http.NewRequest(http.MethodPost, "/admin/clear", bytes.NewBufferString(`{"confirm":true}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("NotConfirmed", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		router := gin.Default()
		router.POST("/admin/clear", handler.Clear)

		req, _ := http.NewRequest(http.MethodPost, "/admin/clear", bytes.NewBufferString(`{"confirm":false}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Clear", mock.Anything)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockReconciliationService)
		handler := NewReconciliationHandler(logger, mockService)
		mockService.On("Clear", mock.Anything).Return(errors.New("postgres down"))

		router := gin.Default()
		router.POST("/admin/clear", handler.Clear)

		req, _ := http.NewRequest(http.MethodPost, "/admin/clear", bytes.NewBufferString(`{"confirm":true}`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}
