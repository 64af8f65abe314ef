package repository

import (
	"context"
	"time"

	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
)

// SnapshotFilter filtros opcionales para consultar el libro de stock.
// Barcode y Designation filtran por subcadena; From/To son inclusivos sobre el día.
type SnapshotFilter struct {
	Barcode     string
	Designation string
	From        *time.Time
	To          *time.Time
}

// StockSnapshotRepository define el puerto de persistencia del libro diario de stock (DIP).
// La unicidad (company_id, barcode, snapshot_date) la garantiza el almacenamiento.
type StockSnapshotRepository interface {
	// InsertIgnore inserta la fila si no existe; si ya existe la clave del día, no hace nada.
	InsertIgnore(ctx context.Context, snap *entity.StockSnapshot) error
	// GetForUpdate obtiene la fila del día bloqueándola para escritura.
	// Devuelve (nil, nil) si no existe.
	GetForUpdate(ctx context.Context, companyID, barcode string, day time.Time) (*entity.StockSnapshot, error)
	// GetLastBefore obtiene la fila más reciente estrictamente anterior al día dado.
	// Devuelve (nil, nil) si no hay historial.
	GetLastBefore(ctx context.Context, companyID, barcode string, day time.Time) (*entity.StockSnapshot, error)
	Update(ctx context.Context, snap *entity.StockSnapshot) error
	List(ctx context.Context, companyID string, filter SnapshotFilter) ([]*entity.StockSnapshot, error)
	// DeleteByBarcode elimina todas las filas del producto en todas las fechas (empresa dada).
	DeleteByBarcode(ctx context.Context, companyID, barcode string) error
}
