package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/pos-backoffice/internal/application/dto"
	"github.com/tu-usuario/pos-backoffice/internal/application/stock"
	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/repository"
)

// StockHandler maneja los eventos de negocio que tocan el libro de stock y su lectura.
type StockHandler struct {
	ledger    *stock.LedgerUseCase
	query     *stock.QueryUseCase
	reconcile *stock.ReconcileUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(ledger *stock.LedgerUseCase, query *stock.QueryUseCase, reconcile *stock.ReconcileUseCase) *StockHandler {
	return &StockHandler{ledger: ledger, query: query, reconcile: reconcile}
}

// RecordPurchase godoc
// @Summary      Registrar compra recibida
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "barcode, quantity (negativo = reverso)"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/purchases [post]
func (h *StockHandler) RecordPurchase(c *fiber.Ctx) error {
	return h.recordDelta(c, h.ledger.RecordPurchase)
}

// RecordSale godoc
// @Summary      Registrar venta finalizada
// @Tags         stock
// @Router       /api/stock/sales [post]
func (h *StockHandler) RecordSale(c *fiber.Ctx) error {
	return h.recordDelta(c, h.ledger.RecordSale)
}

// RecordLoss godoc
// @Summary      Registrar merma ("ACC")
// @Tags         stock
// @Router       /api/stock/losses [post]
func (h *StockHandler) RecordLoss(c *fiber.Ctx) error {
	return h.recordDelta(c, h.ledger.RecordLoss)
}

func (h *StockHandler) recordDelta(c *fiber.Ctx, record func(ctx context.Context, companyID, barcode string, qty decimal.Decimal) error) error {
	companyID := GetCompanyID(c)
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if err := record(c.Context(), companyID, in.Barcode, in.Quantity); err != nil {
		return mapLedgerError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "movimiento registrado"})
}

// RecordReturn godoc
// @Summary      Registrar devolución aplicada
// @Tags         stock
// @Router       /api/stock/returns [post]
func (h *StockHandler) RecordReturn(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if err := h.ledger.RecordReturn(c.Context(), companyID, in.Barcode, in.Quantity, in.Reference); err != nil {
		return mapLedgerError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "devolución registrada"})
}

// RecordPhysicalCount godoc
// @Summary      Registrar conteo físico del día
// @Tags         stock
// @Router       /api/stock/counts [post]
func (h *StockHandler) RecordPhysicalCount(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	var in dto.PhysicalCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	if err := h.ledger.RecordPhysicalCount(c.Context(), companyID, in.Barcode, in.Counted); err != nil {
		return mapLedgerError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "conteo registrado"})
}

// Query godoc
// @Summary      Consultar el libro de stock
// @Description  Filtros opcionales: barcode y designation (subcadena), from/to (YYYY-MM-DD, inclusivo).
// @Tags         stock
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /api/stock/snapshots [get]
func (h *StockHandler) Query(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	filter := repository.SnapshotFilter{
		Barcode:     c.Query("barcode"),
		Designation: c.Query("designation"),
	}
	if v := c.Query("from"); v != "" {
		day, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return badRequest(c, "INVALID_DATE", "from debe ser YYYY-MM-DD")
		}
		filter.From = &day
	}
	if v := c.Query("to"); v != "" {
		day, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return badRequest(c, "INVALID_DATE", "to debe ser YYYY-MM-DD")
		}
		filter.To = &day
	}

	rows := h.query.Search(c.Context(), companyID, filter)
	out := make([]dto.StockSnapshotDTO, 0, len(rows))
	for _, s := range rows {
		out = append(out, dto.SnapshotToDTO(s))
	}
	return c.JSON(fiber.Map{"total": len(out), "snapshots": out})
}

// SynchronizeReturns godoc
// @Summary      Resincronizar devoluciones (trigger administrativo)
// @Description  Sobrescribe el acumulador Returned de cada fila del rango con la suma autoritativa del log de devoluciones. Idempotente.
// @Tags         stock
// @Produce      json
// @Param        from  query  string  true  "YYYY-MM-DD"
// @Param        to    query  string  true  "YYYY-MM-DD"
// @Router       /api/stock/reconcile-returns [post]
func (h *StockHandler) SynchronizeReturns(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	from, err := time.Parse(time.DateOnly, c.Query("from"))
	if err != nil {
		return badRequest(c, "INVALID_DATE", "from debe ser YYYY-MM-DD")
	}
	to, err := time.Parse(time.DateOnly, c.Query("to"))
	if err != nil {
		return badRequest(c, "INVALID_DATE", "to debe ser YYYY-MM-DD")
	}

	summary, err := h.reconcile.SynchronizeReturns(c.Context(), companyID, from, to)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return badRequest(c, "VALIDATION", "rango de fechas inválido")
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.ReconcileSummaryDTO{
		Rows:    summary.Rows,
		Updated: summary.Updated,
		Skipped: summary.Skipped,
		Failed:  summary.Failed,
	})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: message})
}

func mapLedgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return badRequest(c, "VALIDATION", "datos inválidos")
	case errors.Is(err, domain.ErrProductNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "PRODUCT_NOT_FOUND", Message: "producto no encontrado"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
