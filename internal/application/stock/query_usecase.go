package stock

import (
	"context"

	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
	stockdom "github.com/tu-usuario/pos-backoffice/internal/domain/stock"
	"github.com/tu-usuario/pos-backoffice/pkg/logger"
)

// QueryUseCase es la ruta de lectura filtrada del libro de stock.
// Recalcula los campos derivados en lectura en lugar de confiar en los valores
// persistidos, como guardia contra cualquier desfase de las escrituras aditivas.
type QueryUseCase struct {
	snapshots repository.StockSnapshotRepository
	log       *logger.Logger
}

// NewQueryUseCase construye el servicio de consulta.
func NewQueryUseCase(snapshots repository.StockSnapshotRepository, log *logger.Logger) *QueryUseCase {
	return &QueryUseCase{snapshots: snapshots, log: log}
}

// Search devuelve las filas que cumplen el filtro, con los derivados recalculados.
// Las fallas nunca cruzan este borde: degradan a resultado vacío (logueadas).
// El caller no puede distinguir "sin datos" de "falla interna" por esta vía.
func (uc *QueryUseCase) Search(ctx context.Context, companyID string, filter repository.SnapshotFilter) []*entity.StockSnapshot {
	if companyID == "" {
		return []*entity.StockSnapshot{}
	}
	rows, err := uc.snapshots.List(ctx, companyID, filter)
	if err != nil {
		uc.log.Error().
			Str("company_id", companyID).
			Err(err).
			Msg("consulta del libro de stock fallida; se devuelve vacío")
		return []*entity.StockSnapshot{}
	}
	for _, snap := range rows {
		stockdom.Refresh(snap)
	}
	if rows == nil {
		rows = []*entity.StockSnapshot{}
	}
	return rows
}
