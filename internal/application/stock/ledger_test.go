package stock

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
	"github.com/tu-usuario/pos-backoffice/internal/infrastructure/memory"
	"github.com/tu-usuario/pos-backoffice/pkg/logger"
)

const testCompany = "empresa-1"

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// ledgerEnv entorno de test: store en memoria + casos de uso reales con reloj controlable.
type ledgerEnv struct {
	store     *memory.Store
	manager   *SnapshotManager
	ledger    *LedgerUseCase
	catalog   *CatalogUseCase
	query     *QueryUseCase
	reconcile *ReconcileUseCase
	now       time.Time
}

func newLedgerEnv() *ledgerEnv {
	e := &ledgerEnv{
		store: memory.NewStore(),
		now:   time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
	}
	e.manager = NewSnapshotManager()
	e.manager.now = func() time.Time { return e.now }

	log := logger.NewNop()
	e.ledger = NewLedgerUseCase(e.store.TxRunner(), e.store.Products(), e.manager, log)
	e.catalog = NewCatalogUseCase(e.store.Products(), e.ledger, log)
	e.query = NewQueryUseCase(e.store.Snapshots(), log)
	e.reconcile = NewReconcileUseCase(e.store.TxRunner(), e.store.Snapshots(), log)
	return e
}

func (e *ledgerEnv) advanceDays(n int) {
	e.now = e.now.AddDate(0, 0, n)
}

func (e *ledgerEnv) createProduct(t *testing.T, barcode, kind string, opening, threshold int64) {
	t.Helper()
	err := e.catalog.CreateProduct(context.Background(), &entity.Product{
		CompanyID:         testCompany,
		Barcode:           barcode,
		Designation:       "Producto " + barcode,
		Kind:              kind,
		OpeningStock:      d(opening),
		SecurityThreshold: d(threshold),
	})
	require.NoError(t, err)
}

// snapshotFor lee la fila del día indicado directamente del store.
func (e *ledgerEnv) snapshotFor(t *testing.T, barcode string, day time.Time) *entity.StockSnapshot {
	t.Helper()
	snap, err := e.store.Snapshots().GetForUpdate(context.Background(), testCompany, barcode, day)
	require.NoError(t, err)
	return snap
}

func (e *ledgerEnv) today() time.Time {
	return e.manager.Today()
}

func (e *ledgerEnv) listAll(t *testing.T, barcode string) []*entity.StockSnapshot {
	t.Helper()
	rows, err := e.store.Snapshots().List(context.Background(), testCompany, repository.SnapshotFilter{Barcode: barcode})
	require.NoError(t, err)
	return rows
}

// ── Ejemplo de punta a punta ──────────────────────────────────────────────────

func TestLedger_EjemploDosDias(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "ABC123", entity.ProductKindTracked, 100, 10)

	// Día 1: compra +20 -> teórico 120
	require.NoError(t, e.ledger.RecordPurchase(ctx, testCompany, "ABC123", d(20)))
	snap := e.snapshotFor(t, "ABC123", e.today())
	require.NotNil(t, snap)
	assert.Equal(t, "120", snap.TheoreticalClosing.String())

	// Venta 5 -> teórico 115
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "ABC123", d(5)))
	snap = e.snapshotFor(t, "ABC123", e.today())
	assert.Equal(t, "115", snap.TheoreticalClosing.String())

	// Conteo físico 110 -> counted 110, variación -5
	require.NoError(t, e.ledger.RecordPhysicalCount(ctx, testCompany, "ABC123", d(110)))
	snap = e.snapshotFor(t, "ABC123", e.today())
	require.NotNil(t, snap.CountedClosing)
	assert.Equal(t, "110", snap.CountedClosing.String())
	assert.Equal(t, "-5", snap.Variance.String())

	// Día 2: el primer evento crea fila nueva con apertura = conteo del día anterior
	e.advanceDays(1)
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "ABC123", d(2)))
	snap = e.snapshotFor(t, "ABC123", e.today())
	require.NotNil(t, snap)
	assert.Equal(t, "110", snap.OpeningStock.String())
	assert.Equal(t, "10", snap.SecurityThreshold.String())
	assert.True(t, snap.Purchased.IsZero())
	assert.Equal(t, "2", snap.Sold.String())
	assert.True(t, snap.Lost.IsZero())
	assert.True(t, snap.Returned.IsZero())
	assert.Equal(t, "108", snap.TheoreticalClosing.String())
	assert.Nil(t, snap.CountedClosing)
	assert.True(t, snap.Variance.IsZero())
}

// ── Arrastre de estado entre días ─────────────────────────────────────────────

func TestSnapshotManager_ArrastreDesdeTeoricoSinConteo(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "X1", entity.ProductKindTracked, 0, 2)

	require.NoError(t, e.ledger.RecordPurchase(ctx, testCompany, "X1", d(5)))

	e.advanceDays(1)
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "X1", d(1)))

	snap := e.snapshotFor(t, "X1", e.today())
	assert.Equal(t, "5", snap.OpeningStock.String()) // cierre teórico del día anterior
	assert.Equal(t, "2", snap.SecurityThreshold.String())
	assert.Equal(t, "4", snap.TheoreticalClosing.String())
}

func TestSnapshotManager_SinHistorialUsaDefaultsDeCatalogo(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	// Ficha creada sin sembrar fila (alta directa en el repo, sin pasar por el catálogo)
	require.NoError(t, e.store.Products().Create(ctx, &entity.Product{
		ID:                "p-1",
		CompanyID:         testCompany,
		Barcode:           "Y1",
		Designation:       "Producto Y1",
		Kind:              entity.ProductKindTracked,
		OpeningStock:      d(7),
		SecurityThreshold: d(3),
	}))

	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "Y1", d(2)))

	snap := e.snapshotFor(t, "Y1", e.today())
	require.NotNil(t, snap)
	assert.Equal(t, "7", snap.OpeningStock.String())
	assert.Equal(t, "3", snap.SecurityThreshold.String())
	assert.Equal(t, "5", snap.TheoreticalClosing.String())
}

func TestSnapshotManager_HuecosDeDiasUsaUltimaFilaAnterior(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "Z1", entity.ProductKindTracked, 10, 0)
	require.NoError(t, e.ledger.RecordPhysicalCount(ctx, testCompany, "Z1", d(8)))

	// Tres días sin actividad
	e.advanceDays(3)
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "Z1", d(1)))

	snap := e.snapshotFor(t, "Z1", e.today())
	assert.Equal(t, "8", snap.OpeningStock.String()) // del conteo, no del teórico
}

// ── Una sola fila por día ─────────────────────────────────────────────────────

func TestLedger_UnaSolaFilaPorDia(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "B1", entity.ProductKindTracked, 50, 5)

	require.NoError(t, e.ledger.RecordPurchase(ctx, testCompany, "B1", d(10)))
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "B1", d(4)))
	require.NoError(t, e.ledger.RecordLoss(ctx, testCompany, "B1", d(1)))
	require.NoError(t, e.ledger.RecordReturn(ctx, testCompany, "B1", d(2), "T-001"))
	require.NoError(t, e.ledger.RecordPhysicalCount(ctx, testCompany, "B1", d(57)))

	rows := e.listAll(t, "B1")
	require.Len(t, rows, 1)
	snap := rows[0]
	assert.Equal(t, "10", snap.Purchased.String())
	assert.Equal(t, "4", snap.Sold.String())
	assert.Equal(t, "1", snap.Lost.String())
	assert.Equal(t, "2", snap.Returned.String())
	// 50 + 10 + 2 - 4 - 1 = 57
	assert.Equal(t, "57", snap.TheoreticalClosing.String())
	assert.True(t, snap.Variance.IsZero())
}

func TestLedger_OperacionesConcurrentesMismaClave(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "C1", entity.ProductKindTracked, 100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.ledger.RecordSale(ctx, testCompany, "C1", d(1))
		}()
	}
	wg.Wait()

	rows := e.listAll(t, "C1")
	require.Len(t, rows, 1)
	assert.Equal(t, "25", rows[0].Sold.String())
	assert.Equal(t, "75", rows[0].TheoreticalClosing.String())
}

// ── Contratos de operación ────────────────────────────────────────────────────

func TestLedger_CompraNegativaReversa(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "R1", entity.ProductKindTracked, 0, 0)

	require.NoError(t, e.ledger.RecordPurchase(ctx, testCompany, "R1", d(10)))
	require.NoError(t, e.ledger.RecordPurchase(ctx, testCompany, "R1", d(-4)))

	snap := e.snapshotFor(t, "R1", e.today())
	assert.Equal(t, "6", snap.Purchased.String())
	assert.Equal(t, "6", snap.TheoreticalClosing.String())
}

func TestLedger_DevolucionSumaAlTeoricoYAlLog(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "D1", entity.ProductKindTracked, 10, 0)

	require.NoError(t, e.ledger.RecordReturn(ctx, testCompany, "D1", d(3), "FAC-9"))

	snap := e.snapshotFor(t, "D1", e.today())
	assert.Equal(t, "3", snap.Returned.String())
	assert.Equal(t, "13", snap.TheoreticalClosing.String())

	sum, err := e.store.Returns().SumForDay(ctx, testCompany, "D1", e.today())
	require.NoError(t, err)
	assert.Equal(t, "3", sum.String())
}

func TestLedger_ConteoYLuegoVentaRecalculaVariacion(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "V1", entity.ProductKindTracked, 100, 0)

	require.NoError(t, e.ledger.RecordPhysicalCount(ctx, testCompany, "V1", d(95)))
	snap := e.snapshotFor(t, "V1", e.today())
	assert.Equal(t, "-5", snap.Variance.String())

	// La venta mueve el teórico; la variación se recalcula contra el conteo existente
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "V1", d(5)))
	snap = e.snapshotFor(t, "V1", e.today())
	assert.Equal(t, "95", snap.TheoreticalClosing.String())
	require.NotNil(t, snap.CountedClosing)
	assert.Equal(t, "95", snap.CountedClosing.String())
	assert.True(t, snap.Variance.IsZero())
}

func TestLedger_ProductoInexistente(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()

	err := e.ledger.RecordSale(ctx, testCompany, "NO-EXISTE", d(1))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	err = e.ledger.RecordPhysicalCount(ctx, testCompany, "NO-EXISTE", d(1))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestLedger_CantidadCeroInvalida(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "Q1", entity.ProductKindTracked, 0, 0)

	err := e.ledger.RecordSale(ctx, testCompany, "Q1", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedger_VentaEnTransaccionDelCaller(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "TX1", entity.ProductKindTracked, 20, 0)

	product, err := e.store.Products().GetByBarcode(ctx, testCompany, "TX1")
	require.NoError(t, err)
	require.NotNil(t, product)

	// El caller abre su propia unidad de trabajo y compone el apunte del libro
	err = e.store.TxRunner().Run(ctx, func(snapshots repository.StockSnapshotRepository, returns repository.ReturnLogRepository) error {
		return e.ledger.RecordSaleInTx(ctx, snapshots, returns, product, d(6))
	})
	require.NoError(t, err)

	snap := e.snapshotFor(t, "TX1", e.today())
	assert.Equal(t, "6", snap.Sold.String())
	assert.Equal(t, "14", snap.TheoreticalClosing.String())
}

// ── Productos POS (sin control de stock) ──────────────────────────────────────

func TestLedger_ProductoPOSFijadoAlCentinela(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "POS1", entity.ProductKindUntracked, 0, 0)

	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "POS1", d(50)))
	require.NoError(t, e.ledger.RecordPurchase(ctx, testCompany, "POS1", d(10)))
	require.NoError(t, e.ledger.RecordPhysicalCount(ctx, testCompany, "POS1", d(1)))

	rows := e.listAll(t, "POS1")
	require.Len(t, rows, 1)
	snap := rows[0]
	unlimited := entity.UnlimitedStock.String()
	assert.Equal(t, unlimited, snap.OpeningStock.String())
	assert.Equal(t, unlimited, snap.Sold.String())
	assert.Equal(t, unlimited, snap.TheoreticalClosing.String())
	require.NotNil(t, snap.CountedClosing)
	assert.Equal(t, unlimited, snap.CountedClosing.String())
	assert.True(t, snap.Variance.IsZero())
}

// ── Catálogo: efectos sobre el libro ──────────────────────────────────────────

func TestCatalog_AltaSiembraFilaInicial(t *testing.T) {
	e := newLedgerEnv()
	e.createProduct(t, "N1", entity.ProductKindTracked, 30, 4)

	snap := e.snapshotFor(t, "N1", e.today())
	require.NotNil(t, snap)
	assert.Equal(t, "30", snap.OpeningStock.String())
	assert.Equal(t, "4", snap.SecurityThreshold.String())
	assert.Equal(t, "30", snap.TheoreticalClosing.String())
	assert.Nil(t, snap.CountedClosing)
}

func TestCatalog_AltaDuplicada(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "N2", entity.ProductKindTracked, 0, 0)

	err := e.catalog.CreateProduct(ctx, &entity.Product{
		CompanyID:   testCompany,
		Barcode:     "N2",
		Designation: "Otro",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestCatalog_EdicionSobrescribeDatosMaestros(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "M1", entity.ProductKindTracked, 10, 1)
	require.NoError(t, e.ledger.RecordPurchase(ctx, testCompany, "M1", d(5)))

	err := e.catalog.UpdateProduct(ctx, &entity.Product{
		CompanyID:         testCompany,
		Barcode:           "M1",
		Designation:       "Producto M1 renombrado",
		Kind:              entity.ProductKindTracked,
		OpeningStock:      d(50),
		SecurityThreshold: d(9),
	})
	require.NoError(t, err)

	snap := e.snapshotFor(t, "M1", e.today())
	assert.Equal(t, "50", snap.OpeningStock.String())
	assert.Equal(t, "9", snap.SecurityThreshold.String())
	assert.Equal(t, "Producto M1 renombrado", snap.Designation)
	// El teórico se recalcula con los acumuladores ya sumados: 50 + 5
	assert.Equal(t, "55", snap.TheoreticalClosing.String())
}

func TestCatalog_CambioDePOSAMagasinResiembraLaFila(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "K1", entity.ProductKindUntracked, 0, 0)
	// Movimientos sobre la fila POS: quedan fijados al centinela
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "K1", d(3)))

	err := e.catalog.UpdateProduct(ctx, &entity.Product{
		CompanyID:         testCompany,
		Barcode:           "K1",
		Designation:       "Producto K1",
		Kind:              entity.ProductKindTracked,
		OpeningStock:      d(10),
		SecurityThreshold: d(2),
	})
	require.NoError(t, err)

	// La fila pasa a control de stock resembrada: sin centinelas, sin conteo fantasma
	snap := e.snapshotFor(t, "K1", e.today())
	assert.Equal(t, "10", snap.OpeningStock.String())
	assert.Equal(t, "2", snap.SecurityThreshold.String())
	assert.True(t, snap.Purchased.IsZero())
	assert.True(t, snap.Sold.IsZero())
	assert.True(t, snap.Lost.IsZero())
	assert.True(t, snap.Returned.IsZero())
	assert.Nil(t, snap.CountedClosing)
	assert.Equal(t, "10", snap.TheoreticalClosing.String())
	assert.True(t, snap.Variance.IsZero())
}

func TestCatalog_CambioDeMagasinAPOSFijaLaFila(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "K2", entity.ProductKindTracked, 10, 0)
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "K2", d(4)))

	err := e.catalog.UpdateProduct(ctx, &entity.Product{
		CompanyID:   testCompany,
		Barcode:     "K2",
		Designation: "Producto K2",
		Kind:        entity.ProductKindUntracked,
	})
	require.NoError(t, err)

	snap := e.snapshotFor(t, "K2", e.today())
	assert.Equal(t, entity.UnlimitedStock.String(), snap.TheoreticalClosing.String())
	assert.True(t, snap.Variance.IsZero())
}

func TestLedger_CantidadCeroQuedaLogueada(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "LOG1", entity.ProductKindTracked, 0, 0)

	var buf bytes.Buffer
	ledger := NewLedgerUseCase(e.store.TxRunner(), e.store.Products(), e.manager, logger.NewWithWriter(&buf, "error"))

	err := ledger.RecordPurchase(ctx, testCompany, "LOG1", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, buf.String(), "operación del libro de stock fallida")
	assert.Contains(t, buf.String(), "LOG1")
}

func TestCatalog_BajaEliminaTodoElHistorial(t *testing.T) {
	ctx := context.Background()
	e := newLedgerEnv()
	e.createProduct(t, "DEL1", entity.ProductKindTracked, 10, 0)
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "DEL1", d(1)))
	e.advanceDays(1)
	require.NoError(t, e.ledger.RecordSale(ctx, testCompany, "DEL1", d(1)))
	require.Len(t, e.listAll(t, "DEL1"), 2)

	require.NoError(t, e.catalog.DeleteProduct(ctx, testCompany, "DEL1"))

	assert.Empty(t, e.listAll(t, "DEL1"))
	p, err := e.store.Products().GetByBarcode(ctx, testCompany, "DEL1")
	require.NoError(t, err)
	assert.Nil(t, p)
}
