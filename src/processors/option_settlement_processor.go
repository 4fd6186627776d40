package processors

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/username/finvault/backend/src/models"
	"github.com/username/finvault/backend/src/utils"
)

// Contract multiplier for standard equity options. SDI rows are the one
// exception: they settle per unit, not per contract.
const optionContractMultiplier = 100.0

// daysPerYear normalizes holding-period returns to an annual figure.
const daysPerYear = 365.0

var strikeNumberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// optionProcessorImpl implements the OptionProcessor interface.
type optionProcessorImpl struct{}

// NewOptionProcessor creates a new instance of OptionProcessor.
func NewOptionProcessor() OptionProcessor {
	return &optionProcessorImpl{}
}

// Process settles each option transaction independently. A record is OPEN
// iff its close price is absent; open records have a nil realized P/L and
// carry the raw premium cash flow of their open leg instead. Return on
// collateral and its annualization stay nil whenever they are undefined.
func (p *optionProcessorImpl) Process(transactions []models.OptionTransaction) []models.OptionOutcome {
	sorted := make([]models.OptionTransaction, len(transactions))
	copy(sorted, transactions)
	sortOptionsChronologically(sorted)

	outcomes := make([]models.OptionOutcome, 0, len(sorted))
	for i := range sorted {
		outcomes = append(outcomes, settleOption(&sorted[i]))
	}
	return outcomes
}

func settleOption(tx *models.OptionTransaction) models.OptionOutcome {
	outcome := models.OptionOutcome{
		TxID:       tx.ID,
		Ticker:     tx.Ticker,
		Action:     tx.Action,
		Quantity:   tx.Quantity,
		Fill:       tx.Fill,
		ClosePrice: tx.ClosePrice,
		Collateral: effectiveCollateral(tx),
		OpenDate:   tx.OpenDate,
		CloseDate:  tx.CloseDate,
	}

	if tx.ClosePrice == nil {
		outcome.OpenCashFlow = openLegCashFlow(tx)
		return outcome
	}

	pl := realizedPL(tx, *tx.ClosePrice)
	outcome.RealizedPL = &pl

	days := utils.DaysBetween(tx.OpenDate, *tx.CloseDate)
	if days < 1 {
		days = 1
	}
	outcome.DaysHeld = days

	if outcome.Collateral != nil && *outcome.Collateral > 0 {
		roc := pl / *outcome.Collateral
		annualized := roc / float64(days) * daysPerYear
		outcome.ROC = &roc
		outcome.AnnualizedROC = &annualized
	}

	return outcome
}

// realizedPL applies the settlement formula for the transaction's type.
// The switch is exhaustive over OptionAction; the normalizer guarantees no
// other tag reaches this point.
func realizedPL(tx *models.OptionTransaction, closePrice float64) float64 {
	switch tx.Action {
	case models.OptionSell:
		return (tx.Fill - closePrice - tx.Fees/optionContractMultiplier) * tx.Quantity * optionContractMultiplier
	case models.OptionBuy, models.OptionAssigned:
		return (closePrice - tx.Fill - tx.Fees/optionContractMultiplier) * tx.Quantity * optionContractMultiplier
	case models.OptionSdi:
		return (closePrice-tx.Fill)*tx.Quantity - tx.Fees
	}
	return 0
}

// openLegCashFlow is the premium cash flow of a still-open position: credit
// for premium sold, debit for premium bought. ASSIGNED records describe a
// settlement event and cannot be open in any meaningful sense; SDI rows
// carry no contract-scaled premium. Both contribute nothing.
func openLegCashFlow(tx *models.OptionTransaction) float64 {
	switch tx.Action {
	case models.OptionSell:
		return tx.Fill * tx.Quantity * optionContractMultiplier
	case models.OptionBuy:
		return -tx.Fill * tx.Quantity * optionContractMultiplier
	}
	return 0
}

// effectiveCollateral prefers the caller's positive override and otherwise
// derives |strike| x qty x 100 from the first numeric token of the
// free-text strike field ("650C" -> 650). With neither, collateral is
// undefined and return on collateral cannot be computed.
func effectiveCollateral(tx *models.OptionTransaction) *float64 {
	if tx.Collateral != nil && *tx.Collateral > 0 {
		v := *tx.Collateral
		return &v
	}
	token := strikeNumberRe.FindString(tx.Strikes)
	if token == "" {
		return nil
	}
	strike, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	collateral := math.Abs(strike) * tx.Quantity * optionContractMultiplier
	return &collateral
}

func sortOptionsChronologically(transactions []models.OptionTransaction) {
	sort.Slice(transactions, func(i, j int) bool {
		if transactions[i].OpenDate.Equal(transactions[j].OpenDate) {
			return transactions[i].ID < transactions[j].ID
		}
		return transactions[i].OpenDate.Before(transactions[j].OpenDate)
	})
}
