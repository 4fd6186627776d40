package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/finvault/backend/src/config"
	"github.com/username/finvault/backend/src/logger"
	"github.com/username/finvault/backend/src/models"
	"github.com/username/finvault/backend/src/services"
	"github.com/username/finvault/backend/src/utils"
)

// DerivativesHandler exposes the derivatives ledger over the JSON API.
type DerivativesHandler struct {
	ledgerService services.LedgerService
}

func NewDerivativesHandler(service services.LedgerService) *DerivativesHandler {
	return &DerivativesHandler{
		ledgerService: service,
	}
}

// HandleImportTransactions accepts a JSON array of raw records and stores
// the valid ones. The response reports counts plus per-record rejections.
func (h *DerivativesHandler) HandleImportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "user identity required", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxImportSizeBytes)
	var records []models.RawTransaction
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		logger.L.Warn("Failed to decode import payload", "userID", userID, "error", err)
		utils.SendJSONError(w, "invalid JSON payload: expected an array of transaction records", http.StatusBadRequest)
		return
	}
	if len(records) == 0 {
		utils.SendJSONError(w, "empty import payload", http.StatusBadRequest)
		return
	}

	result, err := h.ledgerService.ImportTransactions(userID, records)
	if err != nil {
		logger.L.Error("Error importing transactions", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error importing transactions: %v", err), http.StatusInternalServerError)
		return
	}
	if result.Issues == nil {
		result.Issues = []models.ValidationIssue{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *DerivativesHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "user identity required", http.StatusUnauthorized)
		return
	}

	records, err := h.ledgerService.GetTransactions(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving transactions for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.RawTransaction{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// HandleGetSummary serves the aggregated report. Query parameters: from, to
// (inclusive ISO dates, both optional) and ticker (case-insensitive
// substring). Unset bounds stay unbounded; defaulting the window to "last
// 30 days" or similar is the UI's decision, never this service's.
func (h *DerivativesHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "user identity required", http.StatusUnauthorized)
		return
	}

	filter, err := parseReportFilter(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.ledgerService.GetSummary(userID, filter)
	if err != nil {
		logger.L.Error("Error computing summary", "userID", userID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error computing summary for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	if summary.OpenPositions == nil {
		summary.OpenPositions = []models.OpenPositionSummary{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *DerivativesHandler) HandleGetOpenPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "user identity required", http.StatusUnauthorized)
		return
	}

	ledger, err := h.ledgerService.GetLedgerResult(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving open positions for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	positions := ledger.Futures.OpenPositions
	if positions == nil {
		positions = []models.OpenPositionSummary{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}

func (h *DerivativesHandler) HandleGetRealizedMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "user identity required", http.StatusUnauthorized)
		return
	}

	ledger, err := h.ledgerService.GetLedgerResult(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving realized matches for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	matches := ledger.Futures.Matches
	if matches == nil {
		matches = []models.RealizedMatch{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matches)
}

func (h *DerivativesHandler) HandleGetOptionOutcomes(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "user identity required", http.StatusUnauthorized)
		return
	}

	ledger, err := h.ledgerService.GetLedgerResult(userID)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving option outcomes for userID %d: %v", userID, err), http.StatusInternalServerError)
		return
	}
	outcomes := ledger.Options
	if outcomes == nil {
		outcomes = []models.OptionOutcome{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcomes)
}

func parseReportFilter(r *http.Request) (models.ReportFilter, error) {
	var filter models.ReportFilter

	if fromStr := strings.TrimSpace(r.URL.Query().Get("from")); fromStr != "" {
		from, err := utils.ParseDate(fromStr)
		if err != nil {
			return filter, fmt.Errorf("invalid 'from' parameter: %v", err)
		}
		filter.From = &from
	}
	if toStr := strings.TrimSpace(r.URL.Query().Get("to")); toStr != "" {
		to, err := utils.ParseDate(toStr)
		if err != nil {
			return filter, fmt.Errorf("invalid 'to' parameter: %v", err)
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return filter, fmt.Errorf("'to' date %s precedes 'from' date %s",
			filter.To.Format(utils.DefaultDateFormat), filter.From.Format(utils.DefaultDateFormat))
	}

	filter.Ticker = strings.TrimSpace(r.URL.Query().Get("ticker"))
	return filter, nil
}
