package stock

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
)

// TheoreticalClosing calcula el cierre teórico del día (servicio de dominio).
// Convención de signos fija: las devoluciones reingresan mercancía al estante,
// por lo tanto suman.
// Cierre = Apertura + Compras + Devoluciones - Ventas - Pérdidas
func TheoreticalClosing(opening, purchased, sold, lost, returned decimal.Decimal) decimal.Decimal {
	return opening.Add(purchased).Add(returned).Sub(sold).Sub(lost)
}

// Variance calcula la variación entre stock contado y teórico.
// Sin conteo físico no hay variación: devuelve 0.
func Variance(counted *decimal.Decimal, theoretical decimal.Decimal) decimal.Decimal {
	if counted == nil {
		return decimal.Zero
	}
	return counted.Sub(theoretical)
}

// Day normaliza un instante a la clave canónica del día (medianoche UTC).
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Refresh recalcula los campos derivados de la fila a partir de sus acumuladores.
// No toca CountedClosing. En filas POS reafirma el centinela y fuerza variación 0.
func Refresh(s *entity.StockSnapshot) {
	if !s.Tracked() {
		PinUnlimited(s)
		return
	}
	s.TheoreticalClosing = TheoreticalClosing(s.OpeningStock, s.Purchased, s.Sold, s.Lost, s.Returned)
	s.Variance = Variance(s.CountedClosing, s.TheoreticalClosing)
}

// PinUnlimited fija todos los campos de stock de una fila POS al centinela
// de stock ilimitado y fuerza variación 0, sin importar las operaciones aplicadas.
func PinUnlimited(s *entity.StockSnapshot) {
	unlimited := entity.UnlimitedStock
	s.OpeningStock = unlimited
	s.SecurityThreshold = unlimited
	s.Purchased = unlimited
	s.Sold = unlimited
	s.Lost = unlimited
	s.Returned = unlimited
	s.TheoreticalClosing = unlimited
	counted := unlimited
	s.CountedClosing = &counted
	s.Variance = decimal.Zero
}
