package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/pos-backoffice/internal/application/stock"
	"github.com/tu-usuario/pos-backoffice/internal/infrastructure/memory"
	httpRouter "github.com/tu-usuario/pos-backoffice/internal/interfaces/http"
	"github.com/tu-usuario/pos-backoffice/pkg/logger"
)

const testCompany = "empresa-1"

// newTestApp monta la API completa sobre los adaptadores en memoria.
func newTestApp() (*fiber.App, *memory.Store) {
	store := memory.NewStore()
	log := logger.NewNop()

	manager := stock.NewSnapshotManager()
	ledger := stock.NewLedgerUseCase(store.TxRunner(), store.Products(), manager, log)
	query := stock.NewQueryUseCase(store.Snapshots(), log)
	reconcile := stock.NewReconcileUseCase(store.TxRunner(), store.Snapshots(), log)
	catalog := stock.NewCatalogUseCase(store.Products(), ledger, log)

	app := fiber.New()
	httpRouter.Router(app, httpRouter.RouterDeps{
		Ledger:    ledger,
		Query:     query,
		Reconcile: reconcile,
		Catalog:   catalog,
	})
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, buf)
	req.Header.Set(httpRouter.HeaderCompanyID, testCompany)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createProduct(t *testing.T, app *fiber.App, barcode string, opening int) {
	t.Helper()
	resp := doJSON(t, app, fiber.MethodPost, "/api/stock/products", map[string]any{
		"barcode":       barcode,
		"designation":   "Producto " + barcode,
		"opening_stock": opening,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestAPI_RechazaSinHeaderDeEmpresa(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(fiber.MethodGet, "/api/stock/snapshots", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "MISSING_COMPANY", body["code"])
}

func TestAPI_FlujoCompraYConsulta(t *testing.T) {
	app, _ := newTestApp()
	createProduct(t, app, "ABC123", 100)

	resp := doJSON(t, app, fiber.MethodPost, "/api/stock/purchases", map[string]any{
		"barcode":  "ABC123",
		"quantity": 20,
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodGet, "/api/stock/snapshots?barcode=ABC123", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["total"])

	rows := body["snapshots"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "ABC123", row["barcode"])
	assert.Equal(t, "20", toString(row["purchased"]))
	assert.Equal(t, "120", toString(row["theoretical_closing"]))
	_, hasCounted := row["counted_closing"]
	assert.False(t, hasCounted)
}

func TestAPI_ConteoFisicoYVariacion(t *testing.T) {
	app, _ := newTestApp()
	createProduct(t, app, "V1", 100)

	resp := doJSON(t, app, fiber.MethodPost, "/api/stock/sales", map[string]any{
		"barcode": "V1", "quantity": 5,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, "/api/stock/counts", map[string]any{
		"barcode": "V1", "counted": 90,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodGet, "/api/stock/snapshots?barcode=V1", nil)
	body := decodeBody(t, resp)
	row := body["snapshots"].([]any)[0].(map[string]any)
	assert.Equal(t, "95", toString(row["theoretical_closing"]))
	assert.Equal(t, "90", toString(row["counted_closing"]))
	assert.Equal(t, "-5", toString(row["variance"]))
}

func TestAPI_VentaDeProductoInexistente(t *testing.T) {
	app, _ := newTestApp()

	resp := doJSON(t, app, fiber.MethodPost, "/api/stock/sales", map[string]any{
		"barcode": "NO-EXISTE", "quantity": 1,
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "PRODUCT_NOT_FOUND", body["code"])
}

func TestAPI_CantidadCero(t *testing.T) {
	app, _ := newTestApp()
	createProduct(t, app, "Q1", 0)

	resp := doJSON(t, app, fiber.MethodPost, "/api/stock/sales", map[string]any{
		"barcode": "Q1", "quantity": 0,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AltaDuplicada(t *testing.T) {
	app, _ := newTestApp()
	createProduct(t, app, "DUP1", 0)

	resp := doJSON(t, app, fiber.MethodPost, "/api/stock/products", map[string]any{
		"barcode": "DUP1", "designation": "Otro",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "DUPLICATE", body["code"])
}

func TestAPI_EdicionDeProductoInexistente(t *testing.T) {
	app, _ := newTestApp()

	resp := doJSON(t, app, fiber.MethodPut, "/api/stock/products/NADA", map[string]any{
		"designation": "X",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAPI_BajaBorraElHistorial(t *testing.T) {
	app, _ := newTestApp()
	createProduct(t, app, "DEL1", 10)

	resp := doJSON(t, app, fiber.MethodDelete, "/api/stock/products/DEL1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodGet, "/api/stock/snapshots?barcode=DEL1", nil)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 0, body["total"])
}

func TestAPI_FechaDeConsultaInvalida(t *testing.T) {
	app, _ := newTestApp()

	resp := doJSON(t, app, fiber.MethodGet, "/api/stock/snapshots?from=05-03-2024", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "INVALID_DATE", body["code"])
}

func TestAPI_ResincronizacionDeDevoluciones(t *testing.T) {
	app, _ := newTestApp()
	createProduct(t, app, "RC1", 10)

	resp := doJSON(t, app, fiber.MethodPost, "/api/stock/returns", map[string]any{
		"barcode": "RC1", "quantity": 3, "reference": "FAC-9",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	today := timeNowDate()
	resp = doJSON(t, app, fiber.MethodPost, "/api/stock/reconcile-returns?from="+today+"&to="+today, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["rows"])
	assert.EqualValues(t, 1, body["updated"])
	assert.EqualValues(t, 0, body["failed"])
}

func TestAPI_ResincronizacionSinRango(t *testing.T) {
	app, _ := newTestApp()

	resp := doJSON(t, app, fiber.MethodPost, "/api/stock/reconcile-returns", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

// toString extrae un decimal del JSON decodificado (serializan como string).
func toString(v any) string {
	s, _ := v.(string)
	return s
}

func timeNowDate() string {
	return time.Now().UTC().Format(time.DateOnly)
}
