package processors

import (
	"strings"
	"time"

	"github.com/username/finvault/backend/src/models"
)

// reportProcessorImpl implements the ReportProcessor interface.
type reportProcessorImpl struct{}

// NewReportProcessor creates a new instance of ReportProcessor.
func NewReportProcessor() ReportProcessor {
	return &reportProcessorImpl{}
}

// Aggregate combines futures matches and option outcomes into one summary
// over an inclusive date window and optional ticker filter. It is a pure
// function of its inputs: no clock reads, no mutation, idempotent across
// recomputations.
//
// Realized P/L is windowed by close date. Cash Collected is windowed by
// open date and adds the realized P/L of closed rows to the raw premium
// cash flow of rows still open. It answers "cash flow attributable to
// positions opened in this window", a different temporal view than the
// realized figure. Futures matches are self-closing round trips, so the
// closing trade date serves as both dates.
func (p *reportProcessorImpl) Aggregate(futures models.FuturesResult, options []models.OptionOutcome, filter models.ReportFilter) models.DerivativesSummary {
	var summary models.DerivativesSummary

	for _, match := range futures.Matches {
		if !matchesTicker(match.Ticker, filter.Ticker) {
			continue
		}
		if inWindow(match.TradeDate, filter) {
			summary.RealizedPL += match.RealizedPL
			summary.CashCollected += match.RealizedPL
		}
	}

	var rocNumerator, rocDenominator float64
	for i := range options {
		outcome := &options[i]
		if !matchesTicker(outcome.Ticker, filter.Ticker) {
			continue
		}

		closed := outcome.RealizedPL != nil && outcome.CloseDate != nil
		if closed && inWindow(*outcome.CloseDate, filter) {
			summary.RealizedPL += *outcome.RealizedPL
			if outcome.Collateral != nil && *outcome.Collateral > 0 {
				rocNumerator += *outcome.RealizedPL
				rocDenominator += *outcome.Collateral * float64(outcome.DaysHeld)
			}
		}

		if inWindow(outcome.OpenDate, filter) {
			if closed {
				summary.CashCollected += *outcome.RealizedPL
			} else {
				summary.CashCollected += outcome.OpenCashFlow
			}
		}
	}

	if rocDenominator > 0 {
		weighted := rocNumerator / rocDenominator * daysPerYear
		summary.WeightedAnnualizedROC = &weighted
	}

	for _, position := range futures.OpenPositions {
		if matchesTicker(position.Ticker, filter.Ticker) {
			summary.OpenPositions = append(summary.OpenPositions, position)
		}
	}

	return summary
}

func inWindow(date time.Time, filter models.ReportFilter) bool {
	if filter.From != nil && date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && date.After(*filter.To) {
		return false
	}
	return true
}

func matchesTicker(ticker, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(ticker), strings.ToLower(filter))
}
