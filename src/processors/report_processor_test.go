package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/finvault/backend/src/models"
)

func window(from, to string) models.ReportFilter {
	var filter models.ReportFilter
	if from != "" {
		f := day(from)
		filter.From = &f
	}
	if to != "" {
		t := day(to)
		filter.To = &t
	}
	return filter
}

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func closedOutcome(id, ticker string, pl, collateral float64, daysHeld int, openDate, closeDate string) models.OptionOutcome {
	return models.OptionOutcome{
		TxID:       id,
		Ticker:     ticker,
		Action:     models.OptionSell,
		RealizedPL: floatPtr(pl),
		Collateral: floatPtr(collateral),
		DaysHeld:   daysHeld,
		OpenDate:   day(openDate),
		CloseDate:  timePtr(day(closeDate)),
	}
}

func openOutcome(id, ticker string, cashFlow float64, openDate string) models.OptionOutcome {
	return models.OptionOutcome{
		TxID:         id,
		Ticker:       ticker,
		Action:       models.OptionSell,
		OpenCashFlow: cashFlow,
		OpenDate:     day(openDate),
	}
}

func TestReportProcessor_EmptyInputs(t *testing.T) {
	p := NewReportProcessor()

	summary := p.Aggregate(models.FuturesResult{}, nil, models.ReportFilter{})

	assert.Zero(t, summary.RealizedPL)
	assert.Zero(t, summary.CashCollected)
	// Undefined, not zero and never NaN.
	assert.Nil(t, summary.WeightedAnnualizedROC)
	assert.Empty(t, summary.OpenPositions)
}

func TestReportProcessor_RealizedPLWindowedByCloseDate(t *testing.T) {
	p := NewReportProcessor()

	futures := models.FuturesResult{
		Matches: []models.RealizedMatch{
			{TxID: "f1", Ticker: "ES", RealizedPL: 500, TradeDate: day("2024-02-10")},
			{TxID: "f2", Ticker: "ES", RealizedPL: 900, TradeDate: day("2024-03-10")}, // outside
		},
	}
	options := []models.OptionOutcome{
		// Opened before the window but closed inside it: counts.
		closedOutcome("o1", "NVDA", 498, 130000, 14, "2024-01-20", "2024-02-03"),
		// Closed after the window: does not count.
		closedOutcome("o2", "NVDA", 250, 130000, 30, "2024-02-01", "2024-03-02"),
	}

	summary := p.Aggregate(futures, options, window("2024-02-01", "2024-02-29"))
	assert.InDelta(t, 998.0, summary.RealizedPL, 1e-9)
}

func TestReportProcessor_CashCollectedWindowedByOpenDate(t *testing.T) {
	p := NewReportProcessor()

	options := []models.OptionOutcome{
		// Opened inside the window and already closed: contributes its
		// realized P/L even though the close falls outside the window.
		closedOutcome("o1", "NVDA", 498, 130000, 40, "2024-02-05", "2024-03-16"),
		// Opened inside the window, still open: contributes raw premium.
		openOutcome("o2", "PLTR", 1500, "2024-02-10"),
		// Opened outside the window: contributes nothing.
		openOutcome("o3", "COIN", 700, "2024-01-10"),
	}

	summary := p.Aggregate(models.FuturesResult{}, options, window("2024-02-01", "2024-02-29"))
	assert.InDelta(t, 1998.0, summary.CashCollected, 1e-9)

	// Realized P/L keeps its own close-date view: o1 closed in March.
	assert.Zero(t, summary.RealizedPL)
}

func TestReportProcessor_FuturesMatchCountsInBothMetrics(t *testing.T) {
	p := NewReportProcessor()

	futures := models.FuturesResult{
		Matches: []models.RealizedMatch{
			{TxID: "f1", Ticker: "ES", RealizedPL: 500, TradeDate: day("2024-02-10")},
		},
	}

	summary := p.Aggregate(futures, nil, window("2024-02-01", "2024-02-29"))
	assert.InDelta(t, 500.0, summary.RealizedPL, 1e-9)
	assert.InDelta(t, 500.0, summary.CashCollected, 1e-9)
}

func TestReportProcessor_WeightedAnnualizedROC(t *testing.T) {
	p := NewReportProcessor()

	options := []models.OptionOutcome{
		closedOutcome("o1", "NVDA", 100, 1000, 10, "2024-01-01", "2024-01-11"),
		closedOutcome("o2", "AMD", 200, 2000, 20, "2024-01-01", "2024-01-21"),
	}

	summary := p.Aggregate(models.FuturesResult{}, options, models.ReportFilter{})
	require.NotNil(t, summary.WeightedAnnualizedROC)
	// (100+200) / (1000*10 + 2000*20) * 365
	assert.InDelta(t, 300.0/50000.0*365.0, *summary.WeightedAnnualizedROC, 1e-9)
}

func TestReportProcessor_ROCUndefinedWithoutCollateral(t *testing.T) {
	p := NewReportProcessor()

	outcome := closedOutcome("o1", "SPX", 100, 0, 10, "2024-01-01", "2024-01-11")
	outcome.Collateral = nil

	summary := p.Aggregate(models.FuturesResult{}, []models.OptionOutcome{outcome}, models.ReportFilter{})
	// The P/L still counts, but the denominator stays empty.
	assert.InDelta(t, 100.0, summary.RealizedPL, 1e-9)
	assert.Nil(t, summary.WeightedAnnualizedROC)
}

func TestReportProcessor_TickerFilterSubstringCaseInsensitive(t *testing.T) {
	p := NewReportProcessor()

	futures := models.FuturesResult{
		Matches: []models.RealizedMatch{
			{TxID: "f1", Ticker: "MES", RealizedPL: 100, TradeDate: day("2024-02-10")},
			{TxID: "f2", Ticker: "NQ", RealizedPL: 200, TradeDate: day("2024-02-11")},
		},
		OpenPositions: []models.OpenPositionSummary{
			{Ticker: "MES", Direction: models.Long, TotalQuantity: 1},
			{Ticker: "NQ", Direction: models.Short, TotalQuantity: 2},
		},
	}

	summary := p.Aggregate(futures, nil, models.ReportFilter{Ticker: "es"})
	assert.InDelta(t, 100.0, summary.RealizedPL, 1e-9)
	require.Len(t, summary.OpenPositions, 1)
	assert.Equal(t, "MES", summary.OpenPositions[0].Ticker)
}

func TestReportProcessor_InclusiveBounds(t *testing.T) {
	p := NewReportProcessor()

	futures := models.FuturesResult{
		Matches: []models.RealizedMatch{
			{TxID: "lo", Ticker: "ES", RealizedPL: 1, TradeDate: day("2024-02-01")},
			{TxID: "hi", Ticker: "ES", RealizedPL: 2, TradeDate: day("2024-02-29")},
		},
	}

	summary := p.Aggregate(futures, nil, window("2024-02-01", "2024-02-29"))
	assert.InDelta(t, 3.0, summary.RealizedPL, 1e-9)
}

func TestReportProcessor_UnboundedWindow(t *testing.T) {
	p := NewReportProcessor()

	futures := models.FuturesResult{
		Matches: []models.RealizedMatch{
			{TxID: "f1", Ticker: "ES", RealizedPL: 10, TradeDate: day("2019-06-01")},
			{TxID: "f2", Ticker: "ES", RealizedPL: 20, TradeDate: day("2031-06-01")},
		},
	}

	summary := p.Aggregate(futures, nil, models.ReportFilter{})
	assert.InDelta(t, 30.0, summary.RealizedPL, 1e-9)
}

func TestReportProcessor_Idempotence(t *testing.T) {
	p := NewReportProcessor()

	futures := models.FuturesResult{
		RealizedTotals: map[string]float64{"ES": 500},
		Matches: []models.RealizedMatch{
			{TxID: "f1", Ticker: "ES", RealizedPL: 500, TradeDate: day("2024-02-10")},
		},
		OpenPositions: []models.OpenPositionSummary{
			{Ticker: "ES", Direction: models.Long, TotalQuantity: 1, AveragePrice: 5000, LotCount: 1, Multiplier: 50},
		},
	}
	options := []models.OptionOutcome{
		closedOutcome("o1", "NVDA", 498, 130000, 14, "2024-01-20", "2024-02-03"),
		openOutcome("o2", "PLTR", 1500, "2024-02-10"),
	}
	filter := window("2024-02-01", "2024-02-29")

	assert.Equal(t, p.Aggregate(futures, options, filter), p.Aggregate(futures, options, filter))
}
