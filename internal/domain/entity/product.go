package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de gestión de stock de un producto.
const (
	// ProductKindTracked productos con conteo físico de stock ("MAGASIN").
	ProductKindTracked = "MAGASIN"
	// ProductKindUntracked productos de venta libre sin control de stock ("POS").
	ProductKindUntracked = "POS"
)

// Product representa la ficha de catálogo que el libro de stock necesita resolver:
// código de barras estable, designación visible y valores iniciales del día.
// El CRUD completo del catálogo vive en el front office; aquí solo importa su efecto sobre el libro.
type Product struct {
	ID                string
	CompanyID         string
	Barcode           string // clave estable del producto; sobrevive renombres
	Designation       string
	Kind              string          // MAGASIN o POS
	OpeningStock      decimal.Decimal // stock inicial declarado en catálogo
	SecurityThreshold decimal.Decimal // umbral de seguridad declarado en catálogo
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Tracked indica si el producto lleva conteo físico de stock.
func (p *Product) Tracked() bool {
	return p.Kind != ProductKindUntracked
}
