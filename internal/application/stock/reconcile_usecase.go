package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
	stockdom "github.com/tu-usuario/pos-backoffice/internal/domain/stock"
	"github.com/tu-usuario/pos-backoffice/pkg/logger"
)

// ReconcileSummary resultado de una corrida de resincronización de devoluciones.
type ReconcileSummary struct {
	Rows    int // filas vistas en el rango
	Updated int
	Skipped int // filas POS, sin acumuladores reales
	Failed  int
}

// ReconcileUseCase repara en lote el acumulador Returned contra el log autoritativo
// de devoluciones. Cada fila se procesa en su propia transacción: la falla de una
// no detiene el resto del lote.
type ReconcileUseCase struct {
	tx        TxRunner
	snapshots repository.StockSnapshotRepository
	log       *logger.Logger
}

// NewReconcileUseCase construye el job de resincronización. snapshots debe ser el
// repositorio atado al pool (solo se usa para listar el rango).
func NewReconcileUseCase(tx TxRunner, snapshots repository.StockSnapshotRepository, log *logger.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{tx: tx, snapshots: snapshots, log: log}
}

// SynchronizeReturns recalcula, para cada fila del rango, la suma autoritativa de
// devoluciones de ese producto y día, y la sobrescribe (no acumula) en Returned,
// recalculando después los derivados. Idempotente: dos corridas sobre el mismo
// rango producen el mismo resultado.
func (uc *ReconcileUseCase) SynchronizeReturns(ctx context.Context, companyID string, from, to time.Time) (ReconcileSummary, error) {
	var summary ReconcileSummary
	if companyID == "" {
		return summary, domain.ErrInvalidInput
	}
	fromDay := stockdom.Day(from)
	toDay := stockdom.Day(to)
	if toDay.Before(fromDay) {
		return summary, domain.ErrInvalidInput
	}

	rows, err := uc.snapshots.List(ctx, companyID, repository.SnapshotFilter{From: &fromDay, To: &toDay})
	if err != nil {
		return summary, fmt.Errorf("listar snapshots del rango: %w", err)
	}

	for _, row := range rows {
		summary.Rows++
		if !row.Tracked() {
			summary.Skipped++
			continue
		}
		if err := uc.reconcileRow(ctx, row.CompanyID, row.Barcode, row.Date); err != nil {
			summary.Failed++
			uc.log.Warn().
				Str("company_id", row.CompanyID).
				Str("barcode", row.Barcode).
				Time("day", row.Date).
				Err(err).
				Msg("fila no resincronizada; el lote continúa")
			continue
		}
		summary.Updated++
	}

	uc.log.Info().
		Str("company_id", companyID).
		Int("rows", summary.Rows).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("resincronización de devoluciones terminada")
	return summary, nil
}

// reconcileRow repara una fila dentro de su propia transacción.
func (uc *ReconcileUseCase) reconcileRow(ctx context.Context, companyID, barcode string, day time.Time) error {
	return uc.tx.Run(ctx, func(snapshots repository.StockSnapshotRepository, returns repository.ReturnLogRepository) error {
		snap, err := snapshots.GetForUpdate(ctx, companyID, barcode, day)
		if err != nil {
			return err
		}
		if snap == nil {
			return domain.ErrSnapshotMissing
		}
		sum, err := returns.SumForDay(ctx, companyID, barcode, day)
		if err != nil {
			return err
		}
		snap.Returned = sum
		stockdom.Refresh(snap)
		return snapshots.Update(ctx, snap)
	})
}
