package processors

import (
	"fmt"
	"strings"
	"time"

	"github.com/username/finvault/backend/src/logger"
	"github.com/username/finvault/backend/src/models"
	"github.com/username/finvault/backend/src/utils"
)

// TransactionNormalizer validates raw records and coerces them into typed
// futures or option transactions. Malformed records are rejected with an
// issue naming the offending field; rejection of one record never aborts
// the rest of the batch.
type TransactionNormalizer struct{}

func NewTransactionNormalizer() *TransactionNormalizer {
	return &TransactionNormalizer{}
}

// Normalize processes a batch of raw records. Accepted records come back
// typed; rejected records come back as validation issues.
func (n *TransactionNormalizer) Normalize(records []models.RawTransaction) ([]models.FuturesTransaction, []models.OptionTransaction, []models.ValidationIssue) {
	var futures []models.FuturesTransaction
	var options []models.OptionTransaction
	var issues []models.ValidationIssue

	for i := range records {
		futuresTx, optionTx, issue := n.NormalizeRecord(&records[i])
		if issue != nil {
			if logger.L != nil {
				logger.L.Warn("Rejecting malformed transaction record",
					"txId", issue.TxID, "field", issue.Field, "reason", issue.Reason)
			}
			issues = append(issues, *issue)
			continue
		}
		if futuresTx != nil {
			futures = append(futures, *futuresTx)
		}
		if optionTx != nil {
			options = append(options, *optionTx)
		}
	}

	return futures, options, issues
}

// NormalizeRecord validates a single raw record. Exactly one of the typed
// results is non-nil on success; the issue is non-nil on rejection.
func (n *TransactionNormalizer) NormalizeRecord(raw *models.RawTransaction) (*models.FuturesTransaction, *models.OptionTransaction, *models.ValidationIssue) {
	switch strings.ToUpper(strings.TrimSpace(raw.AssetType)) {
	case "FUTURES_TX":
		tx, issue := n.normalizeFutures(raw)
		return tx, nil, issue
	case "OPTION_TX":
		tx, issue := n.normalizeOption(raw)
		return nil, tx, issue
	default:
		return nil, nil, reject(raw, "assetType", fmt.Sprintf("unknown asset type %q", raw.AssetType))
	}
}

func (n *TransactionNormalizer) normalizeFutures(raw *models.RawTransaction) (*models.FuturesTransaction, *models.ValidationIssue) {
	ticker := strings.TrimSpace(raw.Ticker)
	if ticker == "" {
		return nil, reject(raw, "ticker", "required field is empty")
	}

	var action models.FuturesAction
	switch strings.ToUpper(strings.TrimSpace(raw.Type)) {
	case string(models.FuturesBuy):
		action = models.FuturesBuy
	case string(models.FuturesSell):
		action = models.FuturesSell
	case string(models.FuturesSummary):
		action = models.FuturesSummary
	default:
		return nil, reject(raw, "type", fmt.Sprintf("unknown futures action %q", raw.Type))
	}

	tradeDate, err := utils.ParseDate(strings.TrimSpace(raw.TradeDate))
	if err != nil {
		return nil, reject(raw, "tradeDate", err.Error())
	}

	qty := raw.Qty.Float64()
	if !utils.IsFinite(qty) || qty <= 0 {
		return nil, reject(raw, "qty", "must be a positive finite number")
	}

	fees, issue := normalizeFees(raw)
	if issue != nil {
		return nil, issue
	}

	tx := &models.FuturesTransaction{
		ID:            raw.TxID,
		Ticker:        ticker,
		Action:        action,
		Quantity:      qty,
		Fees:          fees,
		TradeDate:     tradeDate,
		ContractMonth: strings.TrimSpace(raw.ContractMonth),
		Notes:         strings.TrimSpace(raw.Notes),
		RollOver:      strings.TrimSpace(raw.RollOver),
	}

	if action == models.FuturesSummary {
		// Summary rows carry the statement's gross P/L; they never touch
		// the lot queues, so price and point value are not required.
		grossPL := raw.GrossPL.Float64()
		if !utils.IsFinite(grossPL) {
			return nil, reject(raw, "grossPL", "required for SUMMARY rows and must be finite")
		}
		tx.GrossPL = grossPL
		return tx, nil
	}

	price := raw.Price.Float64()
	if !utils.IsFinite(price) || price <= 0 {
		return nil, reject(raw, "price", "must be a positive finite number")
	}
	pointValue := raw.PointValue.Float64()
	if !utils.IsFinite(pointValue) || pointValue <= 0 {
		return nil, reject(raw, "pointValue", "must be a positive finite number")
	}
	tx.Price = price
	tx.PointValue = pointValue
	return tx, nil
}

func (n *TransactionNormalizer) normalizeOption(raw *models.RawTransaction) (*models.OptionTransaction, *models.ValidationIssue) {
	ticker := strings.TrimSpace(raw.Ticker)
	if ticker == "" {
		return nil, reject(raw, "ticker", "required field is empty")
	}

	var action models.OptionAction
	switch strings.ToUpper(strings.TrimSpace(raw.Type)) {
	case string(models.OptionSell):
		action = models.OptionSell
	case string(models.OptionBuy):
		action = models.OptionBuy
	case string(models.OptionAssigned):
		action = models.OptionAssigned
	case string(models.OptionSdi):
		action = models.OptionSdi
	default:
		return nil, reject(raw, "type", fmt.Sprintf("unknown option action %q", raw.Type))
	}

	openDate, err := utils.ParseDate(strings.TrimSpace(raw.OpenDate))
	if err != nil {
		return nil, reject(raw, "openDate", err.Error())
	}

	qty := raw.Qty.Float64()
	if !utils.IsFinite(qty) || qty <= 0 {
		return nil, reject(raw, "qty", "must be a positive finite number")
	}

	fill := raw.Fill.Float64()
	if !utils.IsFinite(fill) || fill <= 0 {
		return nil, reject(raw, "fill", "must be a positive finite number")
	}

	fees, issue := normalizeFees(raw)
	if issue != nil {
		return nil, issue
	}

	var closePrice *float64
	if raw.ClosePrice != nil {
		v := raw.ClosePrice.Float64()
		if !utils.IsFinite(v) || v < 0 {
			return nil, reject(raw, "closePrice", "must be a non-negative finite number when present")
		}
		closePrice = &v
	}

	var closeDate *time.Time
	if strings.TrimSpace(raw.CloseDate) != "" {
		d, err := utils.ParseDate(strings.TrimSpace(raw.CloseDate))
		if err != nil {
			return nil, reject(raw, "closeDate", err.Error())
		}
		closeDate = &d
	}

	// A closed round trip needs both legs of the close; a record with only
	// one of closePrice/closeDate is internally inconsistent.
	if (closePrice == nil) != (closeDate == nil) {
		return nil, reject(raw, "closeDate", "closePrice and closeDate must be present together")
	}

	var collateral *float64
	if raw.Collateral != nil {
		v := raw.Collateral.Float64()
		if !utils.IsFinite(v) {
			return nil, reject(raw, "collateral", "must be a finite number when present")
		}
		collateral = &v
	}

	return &models.OptionTransaction{
		ID:         raw.TxID,
		Ticker:     ticker,
		Action:     action,
		Quantity:   qty,
		Fill:       fill,
		ClosePrice: closePrice,
		Fees:       fees,
		Collateral: collateral,
		Strikes:    strings.TrimSpace(raw.Strikes),
		OpenDate:   openDate,
		CloseDate:  closeDate,
		Notes:      strings.TrimSpace(raw.Notes),
	}, nil
}

// normalizeFees applies the one defaulting rule of the normalizer: absent
// fees mean zero, anything else must be a non-negative finite number.
func normalizeFees(raw *models.RawTransaction) (float64, *models.ValidationIssue) {
	if raw.Fees == nil {
		return 0, nil
	}
	fees := raw.Fees.Float64()
	if !utils.IsFinite(fees) || fees < 0 {
		return 0, reject(raw, "fees", "must be a non-negative finite number")
	}
	return fees, nil
}

func reject(raw *models.RawTransaction, field, reason string) *models.ValidationIssue {
	return &models.ValidationIssue{TxID: raw.TxID, Field: field, Reason: reason}
}
