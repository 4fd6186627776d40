package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// FlexFloat is a float64 that tolerates the number-or-string encoding used
// by the export format of the derivatives table. Values that cannot be
// parsed decode to NaN so that one bad field never aborts decoding of the
// whole batch; the normalizer rejects NaN as malformed.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = FlexFloat(math.NaN())
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, `"`))
	if s == "" {
		*f = FlexFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = FlexFloat(math.NaN())
		return nil
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

// Float64 returns the underlying value, or NaN when the pointer is nil.
func (f *FlexFloat) Float64() float64 {
	if f == nil {
		return math.NaN()
	}
	return float64(*f)
}

// NewFlexFloat wraps a float64 for use in optional raw fields.
func NewFlexFloat(v float64) *FlexFloat {
	f := FlexFloat(v)
	return &f
}

// RawTransaction is a derivatives trade record as handed over by the
// surrounding CRUD layer, before normalization. Numeric fields may arrive
// as JSON numbers or strings; a nil pointer means the field was absent.
type RawTransaction struct {
	TxID          string     `json:"txId"`
	AssetType     string     `json:"assetType"` // FUTURES_TX or OPTION_TX
	Ticker        string     `json:"ticker"`
	Type          string     `json:"type"` // futures: BUY/SELL/SUMMARY; options: SELL/BUY/ASSIGNED/SDI
	Qty           *FlexFloat `json:"qty"`
	Price         *FlexFloat `json:"price"`      // futures entry price
	PointValue    *FlexFloat `json:"pointValue"` // futures contract multiplier
	Fill          *FlexFloat `json:"fill"`       // option entry price
	ClosePrice    *FlexFloat `json:"closePrice"` // option exit price; absent means still open
	Fees          *FlexFloat `json:"fees"`
	GrossPL       *FlexFloat `json:"grossPL"`    // SUMMARY rows only
	Collateral    *FlexFloat `json:"collateral"` // option collateral override
	Strikes       string     `json:"strikes"`
	OpenDate      string     `json:"openDate"`
	CloseDate     string     `json:"closeDate"`
	TradeDate     string     `json:"tradeDate"`
	ContractMonth string     `json:"contractMonth"`
	Notes         string     `json:"notes"`
	RollOver      string     `json:"rollOver"`
}

// FuturesAction is the transaction type tag of a futures record.
type FuturesAction string

const (
	FuturesBuy     FuturesAction = "BUY"
	FuturesSell    FuturesAction = "SELL"
	FuturesSummary FuturesAction = "SUMMARY"
)

// OptionAction is the transaction type tag of an option record.
// ASSIGNED settles with the same formula as a closing purchase; SDI rows
// are not contract-scaled.
type OptionAction string

const (
	OptionSell     OptionAction = "SELL"
	OptionBuy      OptionAction = "BUY"
	OptionAssigned OptionAction = "ASSIGNED"
	OptionSdi      OptionAction = "SDI"
)

// Direction of an open futures lot.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// FuturesTransaction is a validated futures record ready for matching.
type FuturesTransaction struct {
	ID            string
	Ticker        string
	Action        FuturesAction
	Quantity      float64
	Price         float64
	PointValue    float64
	Fees          float64
	GrossPL       float64 // SUMMARY rows carry the statement's gross P/L directly
	TradeDate     time.Time
	ContractMonth string
	Notes         string
	RollOver      string
}

// OptionTransaction is a validated option record. Each record is a
// self-contained round trip: Fill is the open leg, ClosePrice (when set)
// the close leg. A nil ClosePrice means the position is still open;
// ClosePrice of 0 is a valid degenerate close.
type OptionTransaction struct {
	ID         string
	Ticker     string
	Action     OptionAction
	Quantity   float64
	Fill       float64
	ClosePrice *float64
	Fees       float64
	Collateral *float64 // caller override; effective collateral may fall back to the strike
	Strikes    string
	OpenDate   time.Time
	CloseDate  *time.Time
	Notes      string
}

// ValidationIssue reports a rejected raw record. Rejections are per record
// and never abort processing of the remaining batch.
type ValidationIssue struct {
	TxID   string `json:"txId"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}
