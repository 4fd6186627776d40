package processors

import (
	"github.com/username/finvault/backend/src/models"
)

// FuturesProcessor defines the interface for the FIFO position-matching
// engine over futures transactions.
type FuturesProcessor interface {
	Process(transactions []models.FuturesTransaction) models.FuturesResult
}

// OptionProcessor defines the interface for settling self-contained option
// round trips.
type OptionProcessor interface {
	Process(transactions []models.OptionTransaction) []models.OptionOutcome
}

// ReportProcessor defines the interface for aggregating engine outputs over
// a date window and ticker filter.
type ReportProcessor interface {
	Aggregate(futures models.FuturesResult, options []models.OptionOutcome, filter models.ReportFilter) models.DerivativesSummary
}
