package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
)

// MovementRequest body para los eventos de delta del libro
// (POST /api/stock/purchases|sales|losses|returns).
type MovementRequest struct {
	Barcode   string          `json:"barcode"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference,omitempty"` // solo devoluciones
}

// PhysicalCountRequest body para el conteo físico (POST /api/stock/counts).
type PhysicalCountRequest struct {
	Barcode string          `json:"barcode"`
	Counted decimal.Decimal `json:"counted"`
}

// ProductRequest body para alta/edición de ficha de producto.
type ProductRequest struct {
	Barcode           string          `json:"barcode"`
	Designation       string          `json:"designation"`
	Kind              string          `json:"kind,omitempty"` // MAGASIN (default) o POS
	OpeningStock      decimal.Decimal `json:"opening_stock"`
	SecurityThreshold decimal.Decimal `json:"security_threshold"`
}

// StockSnapshotDTO fila del libro en respuestas de consulta.
type StockSnapshotDTO struct {
	Barcode            string           `json:"barcode"`
	Designation        string           `json:"designation"`
	Kind               string           `json:"kind"`
	Date               string           `json:"date"` // YYYY-MM-DD
	OpeningStock       decimal.Decimal  `json:"opening_stock"`
	SecurityThreshold  decimal.Decimal  `json:"security_threshold"`
	Purchased          decimal.Decimal  `json:"purchased"`
	Sold               decimal.Decimal  `json:"sold"`
	Lost               decimal.Decimal  `json:"lost"`
	Returned           decimal.Decimal  `json:"returned"`
	TheoreticalClosing decimal.Decimal  `json:"theoretical_closing"`
	CountedClosing     *decimal.Decimal `json:"counted_closing,omitempty"`
	Variance           decimal.Decimal  `json:"variance"`
}

// SnapshotToDTO mapea la entidad a su representación de respuesta.
func SnapshotToDTO(s *entity.StockSnapshot) StockSnapshotDTO {
	return StockSnapshotDTO{
		Barcode:            s.Barcode,
		Designation:        s.Designation,
		Kind:               s.ProductKind,
		Date:               s.Date.Format(time.DateOnly),
		OpeningStock:       s.OpeningStock,
		SecurityThreshold:  s.SecurityThreshold,
		Purchased:          s.Purchased,
		Sold:               s.Sold,
		Lost:               s.Lost,
		Returned:           s.Returned,
		TheoreticalClosing: s.TheoreticalClosing,
		CountedClosing:     s.CountedClosing,
		Variance:           s.Variance,
	}
}

// ReconcileSummaryDTO resultado del trigger administrativo de resincronización.
type ReconcileSummaryDTO struct {
	Rows    int `json:"rows"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
