package repository

import (
	"context"

	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
)

// ProductRepository define el puerto mínimo de catálogo que el libro de stock necesita (DIP):
// resolver códigos de barras y leer valores iniciales. Devuelve (nil, nil) cuando no existe.
type ProductRepository interface {
	GetByBarcode(ctx context.Context, companyID, barcode string) (*entity.Product, error)
	Create(ctx context.Context, product *entity.Product) error
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, companyID, barcode string) error
}
