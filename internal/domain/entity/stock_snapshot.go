package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnlimitedStock valor centinela para productos POS: stock tratado como ilimitado.
var UnlimitedStock = decimal.NewFromInt(999999)

// StockSnapshot es la fila diaria del libro de stock: exactamente una por
// (empresa, código de barras, día calendario). Los acumuladores crecen de forma
// aditiva durante el día; TheoreticalClosing y Variance son siempre derivados.
type StockSnapshot struct {
	ID          string
	CompanyID   string
	Barcode     string
	Designation string // denormalizado desde el catálogo
	ProductKind string // denormalizado: MAGASIN o POS

	// Date normalizado a medianoche UTC; funciona solo como clave de fila.
	Date time.Time

	OpeningStock      decimal.Decimal
	SecurityThreshold decimal.Decimal

	// Acumuladores del día.
	Purchased decimal.Decimal
	Sold      decimal.Decimal
	Lost      decimal.Decimal // mermas/ajustes tipo "ACC"
	Returned  decimal.Decimal

	// Derivados: nunca escritos directamente por los callers.
	TheoreticalClosing decimal.Decimal
	CountedClosing     *decimal.Decimal // solo lo escribe el conteo físico
	Variance           decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tracked indica si la fila pertenece a un producto con control de stock.
func (s *StockSnapshot) Tracked() bool {
	return s.ProductKind != ProductKindUntracked
}
