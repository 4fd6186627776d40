package processors

import (
	"sort"

	"github.com/username/finvault/backend/src/models"
	"github.com/username/finvault/backend/src/utils"
)

// lot is a quantity of a contract opened at a specific price, awaiting an
// offsetting transaction. Lots live only inside one Process call; they are
// never shared across invocations.
type lot struct {
	remainingQty float64
	entryPrice   float64
	feePerUnit   float64 // opening fees spread over the lot's original quantity
	pointValue   float64
	txID         string
}

// futuresProcessorImpl implements the FuturesProcessor interface.
type futuresProcessorImpl struct{}

// NewFuturesProcessor creates a new instance of FuturesProcessor.
func NewFuturesProcessor() FuturesProcessor {
	return &futuresProcessorImpl{}
}

// Process runs FIFO matching over all futures transactions. Transactions
// are ordered chronologically by (tradeDate, id) per ticker; a BUY closes
// the oldest short lots first, a SELL the oldest long lots, and any
// leftover quantity opens a new lot on the transaction's own side. SUMMARY
// rows contribute their gross P/L directly without touching the queues.
//
// Opposite queues are never auto-netted: both can be non-empty at once when
// buys and sells interleave with partial fills, and only an explicit
// opposite-direction transaction closes lots.
func (p *futuresProcessorImpl) Process(transactions []models.FuturesTransaction) models.FuturesResult {
	byTicker := groupFuturesByTicker(transactions)

	result := models.FuturesResult{
		RealizedTotals: make(map[string]float64),
	}

	for _, ticker := range sortedTickers(byTicker) {
		txs := byTicker[ticker]
		sortFuturesChronologically(txs)

		var longLots, shortLots []*lot

		for i := range txs {
			tx := &txs[i]
			switch tx.Action {
			case models.FuturesSummary:
				result.RealizedTotals[ticker] += tx.GrossPL
				result.Matches = append(result.Matches, models.RealizedMatch{
					TxID:       tx.ID,
					Ticker:     ticker,
					RealizedPL: tx.GrossPL,
					TradeDate:  tx.TradeDate,
				})

			case models.FuturesBuy:
				pl, leftover, surviving, matched := matchAgainstQueue(shortLots, tx, false)
				shortLots = surviving
				if matched {
					result.RealizedTotals[ticker] += pl
					result.Matches = append(result.Matches, models.RealizedMatch{
						TxID:       tx.ID,
						Ticker:     ticker,
						RealizedPL: pl,
						TradeDate:  tx.TradeDate,
					})
				}
				longLots = openLeftover(longLots, tx, leftover)

			case models.FuturesSell:
				pl, leftover, surviving, matched := matchAgainstQueue(longLots, tx, true)
				longLots = surviving
				if matched {
					result.RealizedTotals[ticker] += pl
					result.Matches = append(result.Matches, models.RealizedMatch{
						TxID:       tx.ID,
						Ticker:     ticker,
						RealizedPL: pl,
						TradeDate:  tx.TradeDate,
					})
				}
				shortLots = openLeftover(shortLots, tx, leftover)
			}
		}

		if summary := summarizeQueue(ticker, models.Long, longLots); summary != nil {
			result.OpenPositions = append(result.OpenPositions, *summary)
		}
		if summary := summarizeQueue(ticker, models.Short, shortLots); summary != nil {
			result.OpenPositions = append(result.OpenPositions, *summary)
		}
	}

	return result
}

// matchAgainstQueue consumes the oldest lots of the opposite queue until the
// transaction's quantity is exhausted or the queue is empty. closingLong is
// true when a SELL closes long lots. Fees are charged per matched unit on
// both legs of the round trip. Returns the summed P/L of all matched
// fragments, the unmatched leftover quantity, the surviving queue, and
// whether anything matched at all (a purely opening transaction yields no
// realized match).
func matchAgainstQueue(queue []*lot, tx *models.FuturesTransaction, closingLong bool) (float64, float64, []*lot, bool) {
	txFeePerUnit := tx.Fees / tx.Quantity

	var pl float64
	matched := false

	remaining := tx.Quantity
	for remaining > 0 && len(queue) > 0 {
		oldest := queue[0]
		matchedQty := utils.MinFloat64(remaining, oldest.remainingQty)

		var priceDelta float64
		if closingLong {
			priceDelta = tx.Price - oldest.entryPrice
		} else {
			priceDelta = oldest.entryPrice - tx.Price
		}
		pl += priceDelta*matchedQty*tx.PointValue - matchedQty*(txFeePerUnit+oldest.feePerUnit)
		matched = true

		remaining -= matchedQty
		oldest.remainingQty -= matchedQty
		if oldest.remainingQty == 0 {
			queue = queue[1:]
		}
	}

	return pl, remaining, queue, matched
}

// openLeftover opens a new lot for whatever quantity the opposite queue did
// not absorb. The lot's fee rate is the transaction's fees spread over its
// full original quantity, not over the leftover alone.
func openLeftover(queue []*lot, tx *models.FuturesTransaction, leftover float64) []*lot {
	if leftover <= 0 {
		return queue
	}
	return append(queue, &lot{
		remainingQty: leftover,
		entryPrice:   tx.Price,
		feePerUnit:   tx.Fees / tx.Quantity,
		pointValue:   tx.PointValue,
		txID:         tx.ID,
	})
}

func summarizeQueue(ticker string, direction models.Direction, queue []*lot) *models.OpenPositionSummary {
	if len(queue) == 0 {
		return nil
	}
	var totalQty, weightedPrice float64
	for _, l := range queue {
		totalQty += l.remainingQty
		weightedPrice += l.remainingQty * l.entryPrice
	}
	return &models.OpenPositionSummary{
		Ticker:        ticker,
		Direction:     direction,
		TotalQuantity: totalQty,
		AveragePrice:  weightedPrice / totalQty,
		LotCount:      len(queue),
		Multiplier:    queue[0].pointValue,
	}
}

func groupFuturesByTicker(transactions []models.FuturesTransaction) map[string][]models.FuturesTransaction {
	grouped := make(map[string][]models.FuturesTransaction)
	for _, tx := range transactions {
		grouped[tx.Ticker] = append(grouped[tx.Ticker], tx)
	}
	return grouped
}

func sortedTickers(grouped map[string][]models.FuturesTransaction) []string {
	tickers := make([]string, 0, len(grouped))
	for ticker := range grouped {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

func sortFuturesChronologically(transactions []models.FuturesTransaction) {
	sort.Slice(transactions, func(i, j int) bool {
		// Secondary sort by ID when trade dates are equal, for deterministic
		// replayable matching.
		if transactions[i].TradeDate.Equal(transactions[j].TradeDate) {
			return transactions[i].ID < transactions[j].ID
		}
		return transactions[i].TradeDate.Before(transactions[j].TradeDate)
	})
}
