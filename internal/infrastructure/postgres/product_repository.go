package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de catálogo. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByBarcode resuelve la ficha por empresa + código de barras. (nil, nil) si no existe.
func (r *ProductRepo) GetByBarcode(ctx context.Context, companyID, barcode string) (*entity.Product, error) {
	query := `
		SELECT id, company_id, barcode, designation, kind, opening_stock, security_threshold, created_at, updated_at
		FROM products WHERE company_id = $1 AND barcode = $2`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, companyID, barcode).Scan(
		&p.ID, &p.CompanyID, &p.Barcode, &p.Designation, &p.Kind,
		&p.OpeningStock, &p.SecurityThreshold, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product by barcode: %w", err)
	}
	return &p, nil
}

// Create persiste una nueva ficha. Devuelve ErrDuplicate si el código ya existe en la empresa.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (id, company_id, barcode, designation, kind, opening_stock, security_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.CompanyID, product.Barcode, product.Designation,
		product.Kind, product.OpeningStock, product.SecurityThreshold,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

// Update sobrescribe la ficha (el código de barras es la clave y no cambia).
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products SET designation = $3, kind = $4, opening_stock = $5, security_threshold = $6, updated_at = now()
		WHERE company_id = $1 AND barcode = $2`
	tag, err := r.q.Exec(ctx, query,
		product.CompanyID, product.Barcode, product.Designation, product.Kind,
		product.OpeningStock, product.SecurityThreshold,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// Delete elimina la ficha de la empresa.
func (r *ProductRepo) Delete(ctx context.Context, companyID, barcode string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM products WHERE company_id = $1 AND barcode = $2`, companyID, barcode)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
