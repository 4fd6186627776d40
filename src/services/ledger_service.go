package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/finvault/backend/src/database"
	"github.com/username/finvault/backend/src/logger"
	"github.com/username/finvault/backend/src/models"
	"github.com/username/finvault/backend/src/processors"
)

const (
	ckLedgerResult = "res_ledger_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type ledgerServiceImpl struct {
	normalizer       *processors.TransactionNormalizer
	futuresProcessor processors.FuturesProcessor
	optionProcessor  processors.OptionProcessor
	reportProcessor  processors.ReportProcessor
	reportCache      *cache.Cache
}

func NewLedgerService(
	normalizer *processors.TransactionNormalizer,
	futuresProcessor processors.FuturesProcessor,
	optionProcessor processors.OptionProcessor,
	reportProcessor processors.ReportProcessor,
	reportCache *cache.Cache,
) LedgerService {
	return &ledgerServiceImpl{
		normalizer:       normalizer,
		futuresProcessor: futuresProcessor,
		optionProcessor:  optionProcessor,
		reportProcessor:  reportProcessor,
		reportCache:      reportCache,
	}
}

// ImportTransactions validates and stores a batch of raw records. Records
// without an id get one assigned; records rejected by the normalizer are
// dropped with a reported reason and never stored; duplicates (same user,
// same tx id) are skipped quietly.
func (s *ledgerServiceImpl) ImportTransactions(userID int64, records []models.RawTransaction) (*ImportResult, error) {
	startTime := time.Now()
	logger.L.Info("ImportTransactions START", "userID", userID, "records", len(records))

	result := &ImportResult{}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO derivatives_transactions
		(user_id, tx_id, asset_type, ticker, type, qty, price, point_value, fill, close_price,
		 fees, gross_pl, collateral, strikes, open_date, close_date, trade_date, contract_month, notes, roll_over)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		raw := &records[i]
		if strings.TrimSpace(raw.TxID) == "" {
			raw.TxID = uuid.NewString()
		}

		if _, _, issue := s.normalizer.NormalizeRecord(raw); issue != nil {
			logger.L.Warn("Dropping malformed record on import",
				"userID", userID, "txId", issue.TxID, "field", issue.Field, "reason", issue.Reason)
			result.Issues = append(result.Issues, *issue)
			continue
		}

		_, err := stmt.Exec(userID, raw.TxID, strings.ToUpper(strings.TrimSpace(raw.AssetType)),
			strings.TrimSpace(raw.Ticker), strings.ToUpper(strings.TrimSpace(raw.Type)),
			nullableFloat(raw.Qty), nullableFloat(raw.Price), nullableFloat(raw.PointValue),
			nullableFloat(raw.Fill), nullableFloat(raw.ClosePrice), nullableFloat(raw.Fees),
			nullableFloat(raw.GrossPL), nullableFloat(raw.Collateral),
			strings.TrimSpace(raw.Strikes), strings.TrimSpace(raw.OpenDate), strings.TrimSpace(raw.CloseDate),
			strings.TrimSpace(raw.TradeDate), strings.TrimSpace(raw.ContractMonth),
			strings.TrimSpace(raw.Notes), strings.TrimSpace(raw.RollOver))
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction on import", "userID", userID, "txId", raw.TxID)
				result.Duplicates++
				continue
			}
			return nil, fmt.Errorf("error inserting transaction (txId: %s): %w", raw.TxID, err)
		}
		result.Imported++
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transactions: %w", err)
	}

	s.InvalidateUserCache(userID)

	logger.L.Info("ImportTransactions END", "userID", userID,
		"imported", result.Imported, "duplicates", result.Duplicates,
		"rejected", len(result.Issues), "duration", time.Since(startTime))
	return result, nil
}

// InvalidateUserCache clears cached engine output for a user, forcing a full
// recomputation on the next request. Matching state depends on full history,
// so there is no delta update path; recomputation is cheap at this data
// volume.
func (s *ledgerServiceImpl) InvalidateUserCache(userID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckLedgerResult, userID))
	logger.L.Info("Invalidated ledger cache for user", "userID", userID)
}

func (s *ledgerServiceImpl) GetTransactions(userID int64) ([]models.RawTransaction, error) {
	return fetchUserRawTransactions(userID)
}

// GetLedgerResult runs the full engine over the user's stored records,
// serving from cache when the ledger has not changed since the last run.
func (s *ledgerServiceImpl) GetLedgerResult(userID int64) (*LedgerResult, error) {
	cacheKey := fmt.Sprintf(ckLedgerResult, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for ledger result", "userID", userID)
		return cached.(*LedgerResult), nil
	}
	logger.L.Info("Cache miss for ledger result, recalculating from DB", "userID", userID)

	records, err := fetchUserRawTransactions(userID)
	if err != nil {
		return nil, err
	}

	futuresTxs, optionTxs, issues := s.normalizer.Normalize(records)
	result := &LedgerResult{
		Futures: s.futuresProcessor.Process(futuresTxs),
		Options: s.optionProcessor.Process(optionTxs),
		Issues:  issues,
	}

	s.reportCache.Set(cacheKey, result, DefaultCacheExpiration)
	return result, nil
}

func (s *ledgerServiceImpl) GetSummary(userID int64, filter models.ReportFilter) (*models.DerivativesSummary, error) {
	ledger, err := s.GetLedgerResult(userID)
	if err != nil {
		return nil, err
	}
	// Aggregation is a pure pass over cached engine output; per-filter
	// results are not cached separately.
	summary := s.reportProcessor.Aggregate(ledger.Futures, ledger.Options, filter)
	return &summary, nil
}

func nullableFloat(f *models.FlexFloat) interface{} {
	if f == nil {
		return nil
	}
	return float64(*f)
}

func fetchUserRawTransactions(userID int64) ([]models.RawTransaction, error) {
	logger.L.Debug("Fetching derivatives transactions from DB", "userID", userID)
	rows, err := database.DB.Query(`SELECT tx_id, asset_type, ticker, type, qty, price, point_value, fill,
		close_price, fees, gross_pl, collateral, strikes, open_date, close_date, trade_date,
		contract_month, notes, roll_over
		FROM derivatives_transactions WHERE user_id = ? ORDER BY trade_date ASC, open_date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for userID %d: %w", userID, err)
	}
	defer rows.Close()

	var records []models.RawTransaction
	for rows.Next() {
		var raw models.RawTransaction
		var qty, price, pointValue, fill, closePrice, fees, grossPL, collateral sql.NullFloat64
		var strikes, openDate, closeDate, tradeDate, contractMonth, notes, rollOver sql.NullString
		scanErr := rows.Scan(&raw.TxID, &raw.AssetType, &raw.Ticker, &raw.Type,
			&qty, &price, &pointValue, &fill, &closePrice, &fees, &grossPL, &collateral,
			&strikes, &openDate, &closeDate, &tradeDate, &contractMonth, &notes, &rollOver)
		if scanErr != nil {
			return nil, fmt.Errorf("error scanning transaction row for userID %d: %w", userID, scanErr)
		}
		raw.Qty = flexFromNull(qty)
		raw.Price = flexFromNull(price)
		raw.PointValue = flexFromNull(pointValue)
		raw.Fill = flexFromNull(fill)
		raw.ClosePrice = flexFromNull(closePrice)
		raw.Fees = flexFromNull(fees)
		raw.GrossPL = flexFromNull(grossPL)
		raw.Collateral = flexFromNull(collateral)
		raw.Strikes = strikes.String
		raw.OpenDate = openDate.String
		raw.CloseDate = closeDate.String
		raw.TradeDate = tradeDate.String
		raw.ContractMonth = contractMonth.String
		raw.Notes = notes.String
		raw.RollOver = rollOver.String
		records = append(records, raw)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows for userID %d: %w", userID, err)
	}
	logger.L.Info("DB fetch complete.", "userID", userID, "transactionCount", len(records))
	return records, nil
}

func flexFromNull(v sql.NullFloat64) *models.FlexFloat {
	if !v.Valid {
		return nil
	}
	return models.NewFlexFloat(v.Float64)
}
