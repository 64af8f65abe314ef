package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
	stockdom "github.com/tu-usuario/pos-backoffice/internal/domain/stock"
	"github.com/tu-usuario/pos-backoffice/pkg/logger"
)

// Tipos de operación sobre el libro de stock.
const (
	opPurchase = "purchase"
	opSale     = "sale"
	opLoss     = "loss" // merma tipo "ACC"
	opReturn   = "return"
)

// LedgerUseCase es la superficie de operaciones del libro de stock. Todas comparten
// la misma forma: resolver la fila de hoy, aplicar un delta con signo a exactamente
// un acumulador, recalcular los derivados y persistir.
//
// Las fallas son best-effort respecto a la transacción de negocio que las origina:
// se loguean en el borde de la operación y nunca reintentan (un libro inconsistente
// es preferible a bloquear una venta o una compra).
type LedgerUseCase struct {
	tx        TxRunner
	products  repository.ProductRepository
	snapshots *SnapshotManager
	log       *logger.Logger
}

// NewLedgerUseCase construye el caso de uso del libro de stock.
func NewLedgerUseCase(
	tx TxRunner,
	products repository.ProductRepository,
	snapshots *SnapshotManager,
	log *logger.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{tx: tx, products: products, snapshots: snapshots, log: log}
}

// RecordPurchase acumula una compra recibida en la fila de hoy.
// Delta negativo permitido para reversar una compra.
func (uc *LedgerUseCase) RecordPurchase(ctx context.Context, companyID, barcode string, qty decimal.Decimal) error {
	return uc.applyDelta(ctx, companyID, barcode, opPurchase, qty, "")
}

// RecordSale acumula una venta finalizada en la fila de hoy.
func (uc *LedgerUseCase) RecordSale(ctx context.Context, companyID, barcode string, qty decimal.Decimal) error {
	return uc.applyDelta(ctx, companyID, barcode, opSale, qty, "")
}

// RecordLoss acumula una merma ("ACC": daño, robo, baja) en la fila de hoy.
func (uc *LedgerUseCase) RecordLoss(ctx context.Context, companyID, barcode string, qty decimal.Decimal) error {
	return uc.applyDelta(ctx, companyID, barcode, opLoss, qty, "")
}

// RecordReturn acumula una devolución aplicada y registra la entrada en el log
// autoritativo de devoluciones dentro de la misma transacción.
func (uc *LedgerUseCase) RecordReturn(ctx context.Context, companyID, barcode string, qty decimal.Decimal, reference string) error {
	return uc.applyDelta(ctx, companyID, barcode, opReturn, qty, reference)
}

func (uc *LedgerUseCase) applyDelta(ctx context.Context, companyID, barcode, op string, qty decimal.Decimal, reference string) error {
	if qty.IsZero() {
		uc.logFailure(op, companyID, barcode, domain.ErrInvalidInput)
		return domain.ErrInvalidInput
	}
	product, err := uc.resolveProduct(ctx, companyID, barcode)
	if err != nil {
		uc.logFailure(op, companyID, barcode, err)
		return err
	}
	err = uc.tx.Run(ctx, func(snapshots repository.StockSnapshotRepository, returns repository.ReturnLogRepository) error {
		return uc.applyDeltaInTx(ctx, snapshots, returns, product, op, qty, reference)
	})
	if err != nil {
		uc.logFailure(op, companyID, barcode, err)
	}
	return err
}

// applyDeltaInTx aplica el delta usando repositorios ya atados a una transacción.
func (uc *LedgerUseCase) applyDeltaInTx(
	ctx context.Context,
	snapshots repository.StockSnapshotRepository,
	returns repository.ReturnLogRepository,
	product *entity.Product,
	op string,
	qty decimal.Decimal,
	reference string,
) error {
	if op == opReturn {
		now := uc.snapshots.Now()
		entry := &entity.ReturnEntry{
			ID:         uuid.New().String(),
			CompanyID:  product.CompanyID,
			Barcode:    product.Barcode,
			Quantity:   qty,
			Reference:  reference,
			ReturnedAt: now,
			CreatedAt:  now,
		}
		if err := returns.Create(ctx, entry); err != nil {
			return err
		}
	}

	snap, err := uc.snapshots.GetOrCreateToday(ctx, snapshots, product)
	if err != nil {
		return err
	}
	// Las filas POS permanecen fijadas al centinela sin importar la operación.
	if !snap.Tracked() {
		return nil
	}

	switch op {
	case opPurchase:
		snap.Purchased = snap.Purchased.Add(qty)
	case opSale:
		snap.Sold = snap.Sold.Add(qty)
	case opLoss:
		snap.Lost = snap.Lost.Add(qty)
	case opReturn:
		snap.Returned = snap.Returned.Add(qty)
	default:
		return domain.ErrInvalidInput
	}
	stockdom.Refresh(snap)
	snap.UpdatedAt = uc.snapshots.Now()
	return snapshots.Update(ctx, snap)
}

// RecordPurchaseInTx acumula una compra usando los repositorios del caller (misma
// transacción): la creación de la compra y el apunte en el libro confirman juntos.
func (uc *LedgerUseCase) RecordPurchaseInTx(
	ctx context.Context,
	snapshots repository.StockSnapshotRepository,
	returns repository.ReturnLogRepository,
	product *entity.Product,
	qty decimal.Decimal,
) error {
	return uc.applyDeltaInTx(ctx, snapshots, returns, product, opPurchase, qty, "")
}

// RecordSaleInTx acumula una venta usando los repositorios del caller (misma transacción).
func (uc *LedgerUseCase) RecordSaleInTx(
	ctx context.Context,
	snapshots repository.StockSnapshotRepository,
	returns repository.ReturnLogRepository,
	product *entity.Product,
	qty decimal.Decimal,
) error {
	return uc.applyDeltaInTx(ctx, snapshots, returns, product, opSale, qty, "")
}

// RecordLossInTx acumula una merma usando los repositorios del caller (misma transacción).
func (uc *LedgerUseCase) RecordLossInTx(
	ctx context.Context,
	snapshots repository.StockSnapshotRepository,
	returns repository.ReturnLogRepository,
	product *entity.Product,
	qty decimal.Decimal,
) error {
	return uc.applyDeltaInTx(ctx, snapshots, returns, product, opLoss, qty, "")
}

// RecordReturnInTx acumula una devolución y su entrada en el log usando los
// repositorios del caller (misma transacción).
func (uc *LedgerUseCase) RecordReturnInTx(
	ctx context.Context,
	snapshots repository.StockSnapshotRepository,
	returns repository.ReturnLogRepository,
	product *entity.Product,
	qty decimal.Decimal,
	reference string,
) error {
	return uc.applyDeltaInTx(ctx, snapshots, returns, product, opReturn, qty, reference)
}

// RecordPhysicalCount registra el conteo físico del día: es el único escritor de
// CountedClosing. La variación se calcula contra el cierre teórico ya acumulado.
func (uc *LedgerUseCase) RecordPhysicalCount(ctx context.Context, companyID, barcode string, counted decimal.Decimal) error {
	product, err := uc.resolveProduct(ctx, companyID, barcode)
	if err != nil {
		uc.logFailure("physical_count", companyID, barcode, err)
		return err
	}
	err = uc.tx.Run(ctx, func(snapshots repository.StockSnapshotRepository, _ repository.ReturnLogRepository) error {
		snap, err := uc.snapshots.GetOrCreateToday(ctx, snapshots, product)
		if err != nil {
			return err
		}
		if !snap.Tracked() {
			return nil
		}
		c := counted
		snap.CountedClosing = &c
		snap.Variance = stockdom.Variance(&c, snap.TheoreticalClosing)
		snap.UpdatedAt = uc.snapshots.Now()
		return snapshots.Update(ctx, snap)
	})
	if err != nil {
		uc.logFailure("physical_count", companyID, barcode, err)
	}
	return err
}

// CreateForNewProduct siembra la fila de hoy para un producto recién creado,
// directamente desde los valores del catálogo (no hay historial que arrastrar).
// Se usa exactamente una vez, al crear el producto; si la fila ya existe, no hace nada.
func (uc *LedgerUseCase) CreateForNewProduct(ctx context.Context, companyID, barcode string) error {
	product, err := uc.resolveProduct(ctx, companyID, barcode)
	if err != nil {
		uc.logFailure("create", companyID, barcode, err)
		return err
	}
	err = uc.tx.Run(ctx, func(snapshots repository.StockSnapshotRepository, _ repository.ReturnLogRepository) error {
		snap := NewSnapshot(product, uc.snapshots.Today(), product.OpeningStock, product.SecurityThreshold)
		snap.CreatedAt = uc.snapshots.Now()
		snap.UpdatedAt = snap.CreatedAt
		return snapshots.InsertIgnore(ctx, snap)
	})
	if err != nil {
		uc.logFailure("create", companyID, barcode, err)
	}
	return err
}

// UpdateMasterData sobrescribe apertura y umbral de la fila de hoy con los datos
// editados del catálogo y recalcula el cierre teórico con los acumuladores ya sumados.
func (uc *LedgerUseCase) UpdateMasterData(ctx context.Context, companyID, barcode string) error {
	product, err := uc.resolveProduct(ctx, companyID, barcode)
	if err != nil {
		uc.logFailure("update_master", companyID, barcode, err)
		return err
	}
	err = uc.tx.Run(ctx, func(snapshots repository.StockSnapshotRepository, _ repository.ReturnLogRepository) error {
		snap, err := uc.snapshots.GetOrCreateToday(ctx, snapshots, product)
		if err != nil {
			return err
		}
		wasUntracked := !snap.Tracked()
		snap.OpeningStock = product.OpeningStock
		snap.SecurityThreshold = product.SecurityThreshold
		snap.Designation = product.Designation
		snap.ProductKind = product.Kind
		// Transición POS -> MAGASIN: los centinelas no representan movimientos reales
		// ni un conteo físico; la fila se resiembra en cero y sin conteo.
		if wasUntracked && snap.Tracked() {
			snap.Purchased = decimal.Zero
			snap.Sold = decimal.Zero
			snap.Lost = decimal.Zero
			snap.Returned = decimal.Zero
			snap.CountedClosing = nil
		}
		stockdom.Refresh(snap)
		snap.UpdatedAt = uc.snapshots.Now()
		return snapshots.Update(ctx, snap)
	})
	if err != nil {
		uc.logFailure("update_master", companyID, barcode, err)
	}
	return err
}

// DeleteForProduct elimina en bloque todas las filas del producto, en todas las
// fechas. El historial no se conserva tras el borrado del producto.
func (uc *LedgerUseCase) DeleteForProduct(ctx context.Context, companyID, barcode string) error {
	err := uc.tx.Run(ctx, func(snapshots repository.StockSnapshotRepository, _ repository.ReturnLogRepository) error {
		return snapshots.DeleteByBarcode(ctx, companyID, barcode)
	})
	if err != nil {
		uc.logFailure("delete", companyID, barcode, err)
	}
	return err
}

func (uc *LedgerUseCase) resolveProduct(ctx context.Context, companyID, barcode string) (*entity.Product, error) {
	if companyID == "" || barcode == "" {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.products.GetByBarcode(ctx, companyID, barcode)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (uc *LedgerUseCase) logFailure(op, companyID, barcode string, err error) {
	uc.log.Error().
		Str("op", op).
		Str("company_id", companyID).
		Str("barcode", barcode).
		Err(err).
		Msg("operación del libro de stock fallida")
}
