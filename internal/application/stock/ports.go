package stock

import (
	"context"

	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios
// atados a esa tx. Es la unidad de trabajo explícita del libro de stock: un caller
// (ej. creación de compra) puede confirmar su propio registro y la actualización
// del libro de forma atómica usando las variantes ...InTx.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		snapshots repository.StockSnapshotRepository,
		returns repository.ReturnLogRepository,
	) error) error
}
