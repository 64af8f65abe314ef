package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
	stockdom "github.com/tu-usuario/pos-backoffice/internal/domain/stock"
)

// SnapshotManager garantiza exactamente una fila del libro por (empresa, código, día),
// arrastrando el estado del día anterior o los valores del catálogo si no hay historial.
type SnapshotManager struct {
	now func() time.Time
}

// NewSnapshotManager construye el manager con el reloj del sistema.
func NewSnapshotManager() *SnapshotManager {
	return &SnapshotManager{now: time.Now}
}

// Now devuelve el instante actual según el reloj del manager.
func (m *SnapshotManager) Now() time.Time {
	return m.now()
}

// Today devuelve la clave canónica del día en curso.
func (m *SnapshotManager) Today() time.Time {
	return stockdom.Day(m.now())
}

// GetOrCreateToday devuelve la fila de hoy para el producto, creándola si no existe.
// Debe invocarse con el repositorio atado a la transacción del caller: la combinación
// INSERT ... ON CONFLICT DO NOTHING + SELECT ... FOR UPDATE serializa los accesos
// concurrentes a la misma clave (empresa, código, día) sin carrera find-then-create.
// Idempotente: llamadas repetidas el mismo día devuelven la fila existente sin tocarla.
func (m *SnapshotManager) GetOrCreateToday(
	ctx context.Context,
	snapshots repository.StockSnapshotRepository,
	product *entity.Product,
) (*entity.StockSnapshot, error) {
	day := m.Today()

	snap, err := snapshots.GetForUpdate(ctx, product.CompanyID, product.Barcode, day)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}

	seed, err := m.seedForDay(ctx, snapshots, product, day)
	if err != nil {
		return nil, err
	}
	if err := snapshots.InsertIgnore(ctx, seed); err != nil {
		return nil, err
	}

	// Releer bloqueando: si otra tx ganó la inserción, esta es su fila.
	snap, err = snapshots.GetForUpdate(ctx, product.CompanyID, product.Barcode, day)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, domain.ErrSnapshotMissing
	}
	return snap, nil
}

// seedForDay construye la fila inicial del día: apertura desde el conteo físico del
// día anterior (o su cierre teórico), umbral arrastrado; sin historial, valores del catálogo.
func (m *SnapshotManager) seedForDay(
	ctx context.Context,
	snapshots repository.StockSnapshotRepository,
	product *entity.Product,
	day time.Time,
) (*entity.StockSnapshot, error) {
	opening := product.OpeningStock
	threshold := product.SecurityThreshold

	prior, err := snapshots.GetLastBefore(ctx, product.CompanyID, product.Barcode, day)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		threshold = prior.SecurityThreshold
		if prior.CountedClosing != nil {
			opening = *prior.CountedClosing
		} else {
			opening = prior.TheoreticalClosing
		}
	}

	snap := NewSnapshot(product, day, opening, threshold)
	snap.CreatedAt = m.now()
	snap.UpdatedAt = snap.CreatedAt
	return snap, nil
}

// NewSnapshot construye una fila del libro con acumuladores en cero y derivados
// recalculados. Para productos POS todos los campos quedan fijados al centinela.
func NewSnapshot(product *entity.Product, day time.Time, opening, threshold decimal.Decimal) *entity.StockSnapshot {
	snap := &entity.StockSnapshot{
		ID:                uuid.New().String(),
		CompanyID:         product.CompanyID,
		Barcode:           product.Barcode,
		Designation:       product.Designation,
		ProductKind:       product.Kind,
		Date:              day,
		OpeningStock:      opening,
		SecurityThreshold: threshold,
	}
	stockdom.Refresh(snap)
	return snap
}
