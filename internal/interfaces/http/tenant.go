package http

import "github.com/gofiber/fiber/v2"

// HeaderCompanyID identifica a la empresa dueña del request en un despliegue
// multi-tenant. La autenticación de la sesión vive en el front office; aquí solo
// se exige que el header venga informado.
const HeaderCompanyID = "X-Company-ID"

// GetCompanyID devuelve la empresa del request ("" si falta el header).
func GetCompanyID(c *fiber.Ctx) string {
	return c.Get(HeaderCompanyID)
}

// RequireCompany middleware: rechaza requests sin empresa.
func RequireCompany(c *fiber.Ctx) error {
	if GetCompanyID(c) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    "MISSING_COMPANY",
			"message": "falta el header " + HeaderCompanyID,
		})
	}
	return c.Next()
}
