package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
)

var _ repository.StockSnapshotRepository = (*StockSnapshotRepo)(nil)

const snapshotColumns = `id, company_id, barcode, designation, product_kind, snapshot_date,
	opening_stock, security_threshold, purchased, sold, lost, returned,
	theoretical_closing, counted_closing, variance, created_at, updated_at`

// StockSnapshotRepo implementación del puerto StockSnapshotRepository sobre PostgreSQL
// (usable con pool o tx). La unicidad por (company_id, barcode, snapshot_date) la
// garantiza el índice único de la tabla.
type StockSnapshotRepo struct {
	q Querier
}

// NewStockSnapshotRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockSnapshotRepository(q Querier) *StockSnapshotRepo {
	return &StockSnapshotRepo{q: q}
}

// InsertIgnore inserta la fila del día; si la clave ya existe no hace nada
// (ON CONFLICT DO NOTHING cierra la carrera find-then-create).
func (r *StockSnapshotRepo) InsertIgnore(ctx context.Context, snap *entity.StockSnapshot) error {
	query := `
		INSERT INTO stock_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (company_id, barcode, snapshot_date) DO NOTHING`
	_, err := r.q.Exec(ctx, query,
		snap.ID, snap.CompanyID, snap.Barcode, snap.Designation, snap.ProductKind, snap.Date,
		snap.OpeningStock, snap.SecurityThreshold, snap.Purchased, snap.Sold, snap.Lost, snap.Returned,
		snap.TheoreticalClosing, snap.CountedClosing, snap.Variance, snap.CreatedAt, snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetForUpdate obtiene la fila del día bloqueándola (SELECT FOR UPDATE). (nil, nil) si no existe.
func (r *StockSnapshotRepo) GetForUpdate(ctx context.Context, companyID, barcode string, day time.Time) (*entity.StockSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM stock_snapshots
		WHERE company_id = $1 AND barcode = $2 AND snapshot_date = $3
		FOR UPDATE`
	snap, err := scanSnapshot(r.q.QueryRow(ctx, query, companyID, barcode, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get snapshot for update: %w", err)
	}
	return snap, nil
}

// GetLastBefore obtiene la fila más reciente estrictamente anterior al día dado.
func (r *StockSnapshotRepo) GetLastBefore(ctx context.Context, companyID, barcode string, day time.Time) (*entity.StockSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM stock_snapshots
		WHERE company_id = $1 AND barcode = $2 AND snapshot_date < $3
		ORDER BY snapshot_date DESC
		LIMIT 1`
	snap, err := scanSnapshot(r.q.QueryRow(ctx, query, companyID, barcode, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last snapshot before: %w", err)
	}
	return snap, nil
}

// Update persiste los contadores y derivados de la fila.
func (r *StockSnapshotRepo) Update(ctx context.Context, snap *entity.StockSnapshot) error {
	query := `
		UPDATE stock_snapshots SET
			designation = $2, product_kind = $3,
			opening_stock = $4, security_threshold = $5,
			purchased = $6, sold = $7, lost = $8, returned = $9,
			theoretical_closing = $10, counted_closing = $11, variance = $12,
			updated_at = $13
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		snap.ID, snap.Designation, snap.ProductKind,
		snap.OpeningStock, snap.SecurityThreshold,
		snap.Purchased, snap.Sold, snap.Lost, snap.Returned,
		snap.TheoreticalClosing, snap.CountedClosing, snap.Variance,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update snapshot %s: fila inexistente", snap.ID)
	}
	return nil
}

// List devuelve las filas de la empresa que cumplen el filtro (subcadenas y rango de días inclusivo).
func (r *StockSnapshotRepo) List(ctx context.Context, companyID string, filter repository.SnapshotFilter) ([]*entity.StockSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM stock_snapshots WHERE company_id = $1`
	args := []any{companyID}
	pos := 2
	if filter.Barcode != "" {
		query += fmt.Sprintf(" AND barcode ILIKE '%%' || $%d || '%%'", pos)
		args = append(args, filter.Barcode)
		pos++
	}
	if filter.Designation != "" {
		query += fmt.Sprintf(" AND designation ILIKE '%%' || $%d || '%%'", pos)
		args = append(args, filter.Designation)
		pos++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND snapshot_date >= $%d", pos)
		args = append(args, *filter.From)
		pos++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND snapshot_date <= $%d", pos)
		args = append(args, *filter.To)
		pos++
	}
	query += " ORDER BY snapshot_date DESC, barcode"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		list = append(list, snap)
	}
	return list, rows.Err()
}

// DeleteByBarcode elimina todas las filas del producto en todas las fechas.
func (r *StockSnapshotRepo) DeleteByBarcode(ctx context.Context, companyID, barcode string) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM stock_snapshots WHERE company_id = $1 AND barcode = $2`,
		companyID, barcode,
	)
	if err != nil {
		return fmt.Errorf("delete snapshots by barcode: %w", err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (*entity.StockSnapshot, error) {
	var s entity.StockSnapshot
	var counted *decimal.Decimal
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.Barcode, &s.Designation, &s.ProductKind, &s.Date,
		&s.OpeningStock, &s.SecurityThreshold, &s.Purchased, &s.Sold, &s.Lost, &s.Returned,
		&s.TheoreticalClosing, &counted, &s.Variance, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.CountedClosing = counted
	return &s, nil
}
