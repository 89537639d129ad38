package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	appinv "github.com/erp/backoffice/internal/application/inventory"
	importapp "github.com/erp/backoffice/internal/application/import"
	apptrade "github.com/erp/backoffice/internal/application/trade"
	csvimport "github.com/erp/backoffice/internal/infrastructure/import"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/storage"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type apiFixture struct {
	db      *gorm.DB
	engine  *gin.Engine
	objects *storage.MemoryObjectStorage
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newAPI(t *testing.T, pinger handler.DatabasePinger) *apiFixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	batches := persistence.NewGormExpiryBatchRepository(db)
	records := persistence.NewGormInventoryRecordRepository(db)
	catalogRepo := persistence.NewGormCatalogRepository(db)
	scope := persistence.NewGormTransactionScope(db)

	ledger := appinv.NewExpiryLedgerService(batches, records, catalogRepo, scope, zap.NewNop())
	reconciler := appinv.NewReconciler(scope, zap.NewNop())
	reconciler.SetIdempotencyStore(persistence.NewGormIdempotencyStore(db), 0)
	orders := apptrade.NewPurchaseOrderService(persistence.NewGormPurchaseOrderRepository(db), ledger, reconciler, zap.NewNop())
	validator := importapp.NewBatchImportValidator(catalogRepo, batches, records, zap.NewNop())
	imports := importapp.NewBatchImportService(validator, ledger, scope, 100, zap.NewNop())

	if pinger == nil {
		pinger = stubPinger{}
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1")
	handler.NewPurchaseOrderHandler(orders, csvimport.NewPurchaseOrderItemTemplate(100), 1<<20).RegisterRoutes(api)
	handler.NewExpiryBatchHandler(ledger).RegisterRoutes(api)
	objects := storage.NewMemoryObjectStorage()
	importHandler := handler.NewBatchImportHandler(imports, 1<<20)
	importHandler.SetArchive(storage.NewImportArchive(objects, "imports/"))
	importHandler.RegisterRoutes(api)
	handler.NewHealthHandler("backoffice", pinger).RegisterRoutes(api)

	return &apiFixture{db: db, engine: engine, objects: objects}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) upload(t *testing.T, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) envelope {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decode(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, code, env.Error.Code)
	assert.NotEmpty(t, env.Error.RequestID)
	return env
}

func orderBody(status string) map[string]any {
	body := map[string]any{
		"supplier_name": "Fresh Farms",
		"order_date":    "2025-03-01T00:00:00Z",
		"items": []map[string]any{
			{"sku": "A", "product_name": "Apples", "quantity": 2, "unit_price": "10.00"},
			{"sku": "B", "product_name": "Bananas", "quantity": 1, "unit_price": "20.00"},
		},
	}
	if status != "" {
		body["status"] = status
	}
	return body
}
