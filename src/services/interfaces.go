package services

import (
	"github.com/username/finvault/backend/src/models"
)

// ImportResult reports the outcome of one bulk import: how many records
// were stored, how many were silently skipped as duplicates, and the
// per-record reasons for every rejection.
type ImportResult struct {
	Imported   int                      `json:"imported"`
	Duplicates int                      `json:"duplicates"`
	Issues     []models.ValidationIssue `json:"issues"`
}

// LedgerResult holds the full engine output for one user's ledger.
type LedgerResult struct {
	Futures models.FuturesResult     `json:"futures"`
	Options []models.OptionOutcome   `json:"options"`
	Issues  []models.ValidationIssue `json:"issues"`
}

// LedgerService defines the interface for the derivatives ledger: importing
// raw records and computing matched/settled/aggregated views over them.
type LedgerService interface {
	ImportTransactions(userID int64, records []models.RawTransaction) (*ImportResult, error)
	GetTransactions(userID int64) ([]models.RawTransaction, error)
	GetLedgerResult(userID int64) (*LedgerResult, error)
	GetSummary(userID int64, filter models.ReportFilter) (*models.DerivativesSummary, error)
	InvalidateUserCache(userID int64)
}
