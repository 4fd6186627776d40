package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/finvault/backend/src/database"
	"github.com/username/finvault/backend/src/logger"
	"github.com/username/finvault/backend/src/models"
	"github.com/username/finvault/backend/src/processors"
)

func newTestService(t *testing.T) LedgerService {
	t.Helper()
	logger.InitLogger("error")
	database.InitDB(filepath.Join(t.TempDir(), "ledger_test.db"))
	t.Cleanup(func() { database.DB.Close() })

	return NewLedgerService(
		processors.NewTransactionNormalizer(),
		processors.NewFuturesProcessor(),
		processors.NewOptionProcessor(),
		processors.NewReportProcessor(),
		cache.New(5*time.Minute, 10*time.Minute),
	)
}

func flex(v float64) *models.FlexFloat {
	return models.NewFlexFloat(v)
}

func TestImportTransactions_StoresValidAndReportsRejects(t *testing.T) {
	svc := newTestService(t)

	records := []models.RawTransaction{
		{TxID: "f1", AssetType: "FUTURES_TX", Ticker: "ES", Type: "BUY",
			Qty: flex(2), Price: flex(5000), PointValue: flex(50), TradeDate: "2024-01-01"},
		{TxID: "f2", AssetType: "FUTURES_TX", Ticker: "ES", Type: "SELL",
			Qty: flex(1), Price: flex(5010), PointValue: flex(50), TradeDate: "2024-01-05"},
		{TxID: "f2", AssetType: "FUTURES_TX", Ticker: "ES", Type: "SELL",
			Qty: flex(1), Price: flex(5010), PointValue: flex(50), TradeDate: "2024-01-05"},
		{TxID: "bad", AssetType: "FUTURES_TX", Ticker: "ES", Type: "BUY",
			Qty: flex(0), Price: flex(5000), PointValue: flex(50), TradeDate: "2024-01-02"},
	}

	result, err := svc.ImportTransactions(7, records)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Duplicates)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "bad", result.Issues[0].TxID)
	assert.Equal(t, "qty", result.Issues[0].Field)

	stored, err := svc.GetTransactions(7)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestImportTransactions_AssignsMissingIDs(t *testing.T) {
	svc := newTestService(t)

	records := []models.RawTransaction{
		{AssetType: "OPTION_TX", Ticker: "PLTR", Type: "SELL",
			Qty: flex(1), Fill: flex(3.00), OpenDate: "2024-01-10"},
	}

	result, err := svc.ImportTransactions(7, records)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	stored, err := svc.GetTransactions(7)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].TxID)
}

func TestGetSummary_RecomputesAfterImport(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ImportTransactions(7, []models.RawTransaction{
		{TxID: "f1", AssetType: "FUTURES_TX", Ticker: "ES", Type: "BUY",
			Qty: flex(1), Price: flex(5000), PointValue: flex(50), TradeDate: "2024-01-01"},
		{TxID: "f2", AssetType: "FUTURES_TX", Ticker: "ES", Type: "SELL",
			Qty: flex(1), Price: flex(5010), PointValue: flex(50), TradeDate: "2024-01-05"},
	})
	require.NoError(t, err)

	summary, err := svc.GetSummary(7, models.ReportFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 500.0, summary.RealizedPL, 1e-9)
	assert.Empty(t, summary.OpenPositions)

	// A second identical call is a cache hit and reproduces the result.
	again, err := svc.GetSummary(7, models.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, summary, again)

	// Importing more records invalidates the cached engine output.
	_, err = svc.ImportTransactions(7, []models.RawTransaction{
		{TxID: "o1", AssetType: "OPTION_TX", Ticker: "NVDA", Type: "SELL",
			Qty: flex(2), Fill: flex(6.50), ClosePrice: flex(4.00), Fees: flex(1.00),
			Strikes: "650C", OpenDate: "2024-01-02", CloseDate: "2024-01-16"},
	})
	require.NoError(t, err)

	updated, err := svc.GetSummary(7, models.ReportFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 998.0, updated.RealizedPL, 1e-9)
}

func TestTransactionsAreScopedPerUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ImportTransactions(1, []models.RawTransaction{
		{TxID: "f1", AssetType: "FUTURES_TX", Ticker: "ES", Type: "BUY",
			Qty: flex(1), Price: flex(5000), PointValue: flex(50), TradeDate: "2024-01-01"},
	})
	require.NoError(t, err)

	stored, err := svc.GetTransactions(2)
	require.NoError(t, err)
	assert.Empty(t, stored)

	summary, err := svc.GetSummary(2, models.ReportFilter{})
	require.NoError(t, err)
	assert.Zero(t, summary.RealizedPL)
	assert.Nil(t, summary.WeightedAnnualizedROC)
}
