package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReturnEntry registro del log de devoluciones, fuente autoritativa para
// la resincronización del acumulador Returned del libro de stock.
type ReturnEntry struct {
	ID         string
	CompanyID  string
	Barcode    string
	Quantity   decimal.Decimal
	Reference  string // factura o ticket de origen, si se conoce
	ReturnedAt time.Time
	CreatedAt  time.Time
}
