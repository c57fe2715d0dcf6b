// Package format renders prices the way the dashboard shows them.
package format

import "github.com/shopspring/decimal"

// Market stands in for a price that has not loaded yet
const Market = "MARKET"

// PriceOrMarket prints the shortest exact form of price, or MARKET for 0
func PriceOrMarket(price float64) string {
	if price <= 0 {
		return Market
	}
	return decimal.NewFromFloat(price).String()
}

// Fixed prints price with a fixed number of decimals, or fallback for 0
func Fixed(price float64, places int32, fallback string) string {
	if price <= 0 {
		return fallback
	}
	return decimal.NewFromFloat(price).StringFixed(places)
}

// OptionalPrice returns nil for a price that is not loaded
func OptionalPrice(price float64) *float64 {
	if price <= 0 {
		return nil
	}
	p := price
	return &p
}
