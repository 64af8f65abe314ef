// Package memory implementa los puertos de persistencia sobre estructuras en
// memoria. Soporta los tests de aplicación y de handlers, y el modo demo sin
// PostgreSQL. No hay rollback: el TxRunner solo serializa las "transacciones".
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
)

// Store contenedor de datos compartido por los repositorios en memoria.
type Store struct {
	mu        sync.Mutex
	products  map[string]*entity.Product       // companyID|barcode
	snapshots map[string]*entity.StockSnapshot // companyID|barcode|YYYY-MM-DD
	returns   []*entity.ReturnEntry

	tx *TxRunner

	// Hooks de fallo para tests (nil = sin fallo).
	ListErr      error
	UpdateErrFor map[string]error // barcode -> error a devolver en Update
}

// NewStore construye un store vacío.
func NewStore() *Store {
	st := &Store{
		products:  make(map[string]*entity.Product),
		snapshots: make(map[string]*entity.StockSnapshot),
	}
	st.tx = &TxRunner{st: st}
	return st
}

func productKey(companyID, barcode string) string {
	return companyID + "|" + barcode
}

func snapshotKey(companyID, barcode string, day time.Time) string {
	return companyID + "|" + barcode + "|" + day.Format(time.DateOnly)
}

func cloneSnapshot(s *entity.StockSnapshot) *entity.StockSnapshot {
	c := *s
	if s.CountedClosing != nil {
		v := *s.CountedClosing
		c.CountedClosing = &v
	}
	return &c
}

func cloneProduct(p *entity.Product) *entity.Product {
	c := *p
	return &c
}

// Products devuelve el repositorio de catálogo.
func (st *Store) Products() repository.ProductRepository { return &productRepo{st: st} }

// Snapshots devuelve el repositorio del libro de stock.
func (st *Store) Snapshots() repository.StockSnapshotRepository { return &snapshotRepo{st: st} }

// Returns devuelve el repositorio del log de devoluciones.
func (st *Store) Returns() repository.ReturnLogRepository { return &returnLogRepo{st: st} }

// TxRunner devuelve el runner que serializa los callbacks sobre el store.
// Satisface stock.TxRunner; sin rollback real.
func (st *Store) TxRunner() *TxRunner { return st.tx }

// TxRunner serializa las "transacciones" sobre el store en memoria.
type TxRunner struct {
	st   *Store
	txMu sync.Mutex
}

// Run ejecuta fn bajo el lock de transacción del store.
func (r *TxRunner) Run(_ context.Context, fn func(
	snapshots repository.StockSnapshotRepository,
	returns repository.ReturnLogRepository,
) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r.st.Snapshots(), r.st.Returns())
}

// ── ProductRepository ─────────────────────────────────────────────────────────

type productRepo struct{ st *Store }

func (r *productRepo) GetByBarcode(_ context.Context, companyID, barcode string) (*entity.Product, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	p, ok := r.st.products[productKey(companyID, barcode)]
	if !ok {
		return nil, nil
	}
	return cloneProduct(p), nil
}

func (r *productRepo) Create(_ context.Context, product *entity.Product) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := productKey(product.CompanyID, product.Barcode)
	if _, ok := r.st.products[key]; ok {
		return domain.ErrDuplicate
	}
	r.st.products[key] = cloneProduct(product)
	return nil
}

func (r *productRepo) Update(_ context.Context, product *entity.Product) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := productKey(product.CompanyID, product.Barcode)
	if _, ok := r.st.products[key]; !ok {
		return domain.ErrProductNotFound
	}
	r.st.products[key] = cloneProduct(product)
	return nil
}

func (r *productRepo) Delete(_ context.Context, companyID, barcode string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := productKey(companyID, barcode)
	if _, ok := r.st.products[key]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.st.products, key)
	return nil
}

// ── StockSnapshotRepository ───────────────────────────────────────────────────

type snapshotRepo struct{ st *Store }

func (r *snapshotRepo) InsertIgnore(_ context.Context, snap *entity.StockSnapshot) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := snapshotKey(snap.CompanyID, snap.Barcode, snap.Date)
	if _, ok := r.st.snapshots[key]; ok {
		return nil
	}
	r.st.snapshots[key] = cloneSnapshot(snap)
	return nil
}

func (r *snapshotRepo) GetForUpdate(_ context.Context, companyID, barcode string, day time.Time) (*entity.StockSnapshot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.snapshots[snapshotKey(companyID, barcode, day)]
	if !ok {
		return nil, nil
	}
	return cloneSnapshot(s), nil
}

func (r *snapshotRepo) GetLastBefore(_ context.Context, companyID, barcode string, day time.Time) (*entity.StockSnapshot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var last *entity.StockSnapshot
	for _, s := range r.st.snapshots {
		if s.CompanyID != companyID || s.Barcode != barcode || !s.Date.Before(day) {
			continue
		}
		if last == nil || s.Date.After(last.Date) {
			last = s
		}
	}
	if last == nil {
		return nil, nil
	}
	return cloneSnapshot(last), nil
}

func (r *snapshotRepo) Update(_ context.Context, snap *entity.StockSnapshot) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if err, ok := r.st.UpdateErrFor[snap.Barcode]; ok && err != nil {
		return err
	}
	key := snapshotKey(snap.CompanyID, snap.Barcode, snap.Date)
	if _, ok := r.st.snapshots[key]; !ok {
		return domain.ErrSnapshotMissing
	}
	r.st.snapshots[key] = cloneSnapshot(snap)
	return nil
}

func (r *snapshotRepo) List(_ context.Context, companyID string, filter repository.SnapshotFilter) ([]*entity.StockSnapshot, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.ListErr != nil {
		return nil, r.st.ListErr
	}
	var list []*entity.StockSnapshot
	for _, s := range r.st.snapshots {
		if s.CompanyID != companyID {
			continue
		}
		if filter.Barcode != "" && !strings.Contains(strings.ToLower(s.Barcode), strings.ToLower(filter.Barcode)) {
			continue
		}
		if filter.Designation != "" && !strings.Contains(strings.ToLower(s.Designation), strings.ToLower(filter.Designation)) {
			continue
		}
		if filter.From != nil && s.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && s.Date.After(*filter.To) {
			continue
		}
		list = append(list, cloneSnapshot(s))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		return list[i].Barcode < list[j].Barcode
	})
	return list, nil
}

func (r *snapshotRepo) DeleteByBarcode(_ context.Context, companyID, barcode string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for key, s := range r.st.snapshots {
		if s.CompanyID == companyID && s.Barcode == barcode {
			delete(r.st.snapshots, key)
		}
	}
	return nil
}

// ── ReturnLogRepository ───────────────────────────────────────────────────────

type returnLogRepo struct{ st *Store }

func (r *returnLogRepo) Create(_ context.Context, entry *entity.ReturnEntry) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	e := *entry
	r.st.returns = append(r.st.returns, &e)
	return nil
}

func (r *returnLogRepo) SumForDay(_ context.Context, companyID, barcode string, day time.Time) (decimal.Decimal, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	next := day.AddDate(0, 0, 1)
	sum := decimal.Zero
	for _, e := range r.st.returns {
		if e.CompanyID != companyID || e.Barcode != barcode {
			continue
		}
		at := e.ReturnedAt.UTC()
		if at.Before(day) || !at.Before(next) {
			continue
		}
		sum = sum.Add(e.Quantity)
	}
	return sum, nil
}
