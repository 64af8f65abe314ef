package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pos-backoffice/internal/application/stock"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *stock.LedgerUseCase
	Query     *stock.QueryUseCase
	Reconcile *stock.ReconcileUseCase
	Catalog   *stock.CatalogUseCase
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api/stock", RequireCompany)

	stockHandler := NewStockHandler(deps.Ledger, deps.Query, deps.Reconcile)
	api.Post("/purchases", stockHandler.RecordPurchase)
	api.Post("/sales", stockHandler.RecordSale)
	api.Post("/losses", stockHandler.RecordLoss)
	api.Post("/returns", stockHandler.RecordReturn)
	api.Post("/counts", stockHandler.RecordPhysicalCount)
	api.Get("/snapshots", stockHandler.Query)
	api.Post("/reconcile-returns", stockHandler.SynchronizeReturns)

	productHandler := NewProductHandler(deps.Catalog)
	api.Post("/products", productHandler.Create)
	api.Put("/products/:barcode", productHandler.Update)
	api.Delete("/products/:barcode", productHandler.Delete)
}
