package catalog

import "github.com/shopspring/decimal"

type Product struct {
	ID    string          `json:"productId"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
