package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
)

// ReturnLogRepository define el puerto del log autoritativo de devoluciones (DIP).
type ReturnLogRepository interface {
	Create(ctx context.Context, entry *entity.ReturnEntry) error
	// SumForDay suma las devoluciones del producto dentro del día calendario dado
	// (day debe venir normalizado a medianoche UTC).
	SumForDay(ctx context.Context, companyID, barcode string, day time.Time) (decimal.Decimal, error)
}
