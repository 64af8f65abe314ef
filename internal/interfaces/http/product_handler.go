package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/pos-backoffice/internal/application/dto"
	"github.com/tu-usuario/pos-backoffice/internal/application/stock"
	"github.com/tu-usuario/pos-backoffice/internal/domain"
	"github.com/tu-usuario/pos-backoffice/internal/domain/entity"
)

// ProductHandler cubre el ciclo de vida mínimo de la ficha de producto:
// cada cambio dispara su efecto sobre el libro de stock.
type ProductHandler struct {
	catalog *stock.CatalogUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(catalog *stock.CatalogUseCase) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// Create godoc
// @Summary      Alta de producto (siembra la fila inicial del libro)
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ProductRequest  true  "barcode, designation, kind (MAGASIN|POS), opening_stock, security_threshold"
// @Success      201   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/products [post]
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	var in dto.ProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	product := &entity.Product{
		CompanyID:         companyID,
		Barcode:           in.Barcode,
		Designation:       in.Designation,
		Kind:              in.Kind,
		OpeningStock:      in.OpeningStock,
		SecurityThreshold: in.SecurityThreshold,
	}
	if err := h.catalog.CreateProduct(c.Context(), product); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el código de barras ya existe"})
		}
		return mapLedgerError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "producto creado"})
}

// Update godoc
// @Summary      Edición de ficha (sobrescribe datos maestros de la fila de hoy)
// @Tags         products
// @Router       /api/stock/products/{barcode} [put]
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	var in dto.ProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	product := &entity.Product{
		CompanyID:         companyID,
		Barcode:           c.Params("barcode"),
		Designation:       in.Designation,
		Kind:              in.Kind,
		OpeningStock:      in.OpeningStock,
		SecurityThreshold: in.SecurityThreshold,
	}
	if err := h.catalog.UpdateProduct(c.Context(), product); err != nil {
		return mapLedgerError(c, err)
	}
	return c.JSON(fiber.Map{"message": "producto actualizado"})
}

// Delete godoc
// @Summary      Baja de producto (borra todo su historial en el libro)
// @Tags         products
// @Router       /api/stock/products/{barcode} [delete]
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if err := h.catalog.DeleteProduct(c.Context(), companyID, c.Params("barcode")); err != nil {
		return mapLedgerError(c, err)
	}
	return c.JSON(fiber.Map{"message": "producto eliminado"})
}
