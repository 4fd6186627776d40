package models

import "time"

// RealizedMatch is the realized P/L locked in by one closing futures
// transaction. A transaction may consume several lots, but all fragments
// are summed into a single match keyed by the closing transaction's id.
type RealizedMatch struct {
	TxID       string    `json:"txId"`
	Ticker     string    `json:"ticker"`
	RealizedPL float64   `json:"realizedPL"`
	TradeDate  time.Time `json:"tradeDate"` // trade date of the closing transaction
}

// OpenPositionSummary rolls up one non-empty lot queue (ticker+direction).
type OpenPositionSummary struct {
	Ticker        string    `json:"ticker"`
	Direction     Direction `json:"direction"`
	TotalQuantity float64   `json:"totalQuantity"`
	AveragePrice  float64   `json:"averagePrice"` // volume-weighted over remaining lot quantities
	LotCount      int       `json:"lotCount"`
	Multiplier    float64   `json:"multiplier"`
}

// FuturesResult is the full output of one matching run.
type FuturesResult struct {
	RealizedTotals map[string]float64    `json:"realizedTotals"` // ticker -> lifetime realized P/L
	Matches        []RealizedMatch       `json:"matches"`
	OpenPositions  []OpenPositionSummary `json:"openPositions"`
}

// OptionOutcome is the settlement result of one option transaction.
// RealizedPL is nil while the position is open; ROC and AnnualizedROC are
// nil whenever they are undefined (open position, or no usable collateral),
// never coerced to zero.
type OptionOutcome struct {
	TxID          string       `json:"txId"`
	Ticker        string       `json:"ticker"`
	Action        OptionAction `json:"action"`
	Quantity      float64      `json:"quantity"`
	Fill          float64      `json:"fill"`
	ClosePrice    *float64     `json:"closePrice,omitempty"`
	RealizedPL    *float64     `json:"realizedPL"`
	Collateral    *float64     `json:"collateral"` // effective collateral (override or strike-derived)
	ROC           *float64     `json:"roc"`
	AnnualizedROC *float64     `json:"annualizedRoc"`
	DaysHeld      int          `json:"daysHeld"` // 0 while open
	OpenCashFlow  float64      `json:"openCashFlow"`
	OpenDate      time.Time    `json:"openDate"`
	CloseDate     *time.Time   `json:"closeDate,omitempty"`
}

// ReportFilter bounds a report to an inclusive date window and an optional
// case-insensitive ticker substring. Nil bounds are unbounded; the engine
// never consults the wall clock, so any defaulting is the caller's call.
type ReportFilter struct {
	From   *time.Time
	To     *time.Time
	Ticker string
}

// DerivativesSummary is the aggregated report over one filter window.
// WeightedAnnualizedROC is nil when the collateral-days denominator is
// zero, rather than surfacing 0 or NaN.
type DerivativesSummary struct {
	RealizedPL            float64               `json:"realizedPL"`
	CashCollected         float64               `json:"cashCollected"`
	WeightedAnnualizedROC *float64              `json:"weightedAnnualizedRoc"`
	OpenPositions         []OpenPositionSummary `json:"openPositions"`
}
