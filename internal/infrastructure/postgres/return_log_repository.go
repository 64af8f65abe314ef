package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
)

var _ repository.ReturnLogRepository = (*ReturnLogRepo)(nil)

// ReturnLogRepo implementación del log de devoluciones sobre PostgreSQL (usable con pool o tx).
type ReturnLogRepo struct {
	q Querier
}

// NewReturnLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReturnLogRepository(q Querier) *ReturnLogRepo {
	return &ReturnLogRepo{q: q}
}

// Create persiste una entrada del log de devoluciones.
func (r *ReturnLogRepo) Create(ctx context.Context, entry *entity.ReturnEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	reference := (*string)(nil)
	if entry.Reference != "" {
		reference = &entry.Reference
	}
	query := `
		INSERT INTO stock_returns (id, company_id, barcode, quantity, reference, returned_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		entry.ID, entry.CompanyID, entry.Barcode, entry.Quantity, reference,
		entry.ReturnedAt, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create return entry: %w", err)
	}
	return nil
}

// SumForDay suma las devoluciones del producto dentro del día calendario
// (day normalizado a medianoche UTC).
func (r *ReturnLogRepo) SumForDay(ctx context.Context, companyID, barcode string, day time.Time) (decimal.Decimal, error) {
	next := day.AddDate(0, 0, 1)
	query := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_returns
		WHERE company_id = $1 AND barcode = $2 AND returned_at >= $3 AND returned_at < $4`
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, companyID, barcode, day, next).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum returns for day: %w", err)
	}
	return sum, nil
}
