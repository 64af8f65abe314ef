package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
	"github.com/tu-usuario/pos-backoffice/pkg/logger"
)

// CatalogUseCase cubre el ciclo de vida mínimo de la ficha de producto y dispara
// el efecto de cada cambio sobre el libro de stock. El apunte en el libro es
// best-effort: si falla se loguea y la operación de catálogo no se revierte.
type CatalogUseCase struct {
	products repository.ProductRepository
	ledger   *LedgerUseCase
	log      *logger.Logger
}

// NewCatalogUseCase construye el caso de uso de catálogo.
func NewCatalogUseCase(products repository.ProductRepository, ledger *LedgerUseCase, log *logger.Logger) *CatalogUseCase {
	return &CatalogUseCase{products: products, ledger: ledger, log: log}
}

// CreateProduct alta de producto + siembra de la fila inicial del libro.
func (uc *CatalogUseCase) CreateProduct(ctx context.Context, product *entity.Product) error {
	if product.CompanyID == "" || product.Barcode == "" || product.Designation == "" {
		return domain.ErrInvalidInput
	}
	if product.Kind == "" {
		product.Kind = entity.ProductKindTracked
	}
	if product.Kind != entity.ProductKindTracked && product.Kind != entity.ProductKindUntracked {
		return domain.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := uc.products.Create(ctx, product); err != nil {
		return err
	}
	if err := uc.ledger.CreateForNewProduct(ctx, product.CompanyID, product.Barcode); err != nil {
		uc.logLedgerFailure("create", product, err)
	}
	return nil
}

// UpdateProduct edita la ficha y sobrescribe los datos maestros de la fila de hoy.
func (uc *CatalogUseCase) UpdateProduct(ctx context.Context, product *entity.Product) error {
	if product.CompanyID == "" || product.Barcode == "" {
		return domain.ErrInvalidInput
	}
	existing, err := uc.products.GetByBarcode(ctx, product.CompanyID, product.Barcode)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrProductNotFound
	}
	product.ID = existing.ID
	if product.Kind == "" {
		product.Kind = existing.Kind
	}
	if err := uc.products.Update(ctx, product); err != nil {
		return err
	}
	if err := uc.ledger.UpdateMasterData(ctx, product.CompanyID, product.Barcode); err != nil {
		uc.logLedgerFailure("update", product, err)
	}
	return nil
}

// DeleteProduct borra la ficha y, en bloque, todo el historial del libro para ese
// código de barras. Tradeoff asumido del diseño: el historial no se conserva.
func (uc *CatalogUseCase) DeleteProduct(ctx context.Context, companyID, barcode string) error {
	if companyID == "" || barcode == "" {
		return domain.ErrInvalidInput
	}
	if err := uc.products.Delete(ctx, companyID, barcode); err != nil {
		return err
	}
	if err := uc.ledger.DeleteForProduct(ctx, companyID, barcode); err != nil {
		uc.log.Error().
			Str("company_id", companyID).
			Str("barcode", barcode).
			Err(err).
			Msg("borrado del historial del libro fallido tras eliminar producto")
	}
	return nil
}

func (uc *CatalogUseCase) logLedgerFailure(op string, product *entity.Product, err error) {
	uc.log.Error().
		Str("op", op).
		Str("company_id", product.CompanyID).
		Str("barcode", product.Barcode).
		Err(err).
		Msg("apunte en el libro de stock fallido; operación de catálogo confirmada igualmente")
}
