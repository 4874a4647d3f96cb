package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is one currency row of the daily central bank bulletin.
type ExchangeRate struct {
	CurrencyCode string
	Unit         int
	Name         string
	BuyingRate   decimal.Decimal
	SellingRate  decimal.Decimal
}

func (r ExchangeRate) String() string {
	return fmt.Sprintf("%d %s (%s): buying=%s, selling=%s",
		r.Unit, r.CurrencyCode, r.Name, r.BuyingRate.String(), r.SellingRate.String())
}

// RateReport is the input of the renderer.
type RateReport struct {
	Date  time.Time
	Rates []ExchangeRate
}
