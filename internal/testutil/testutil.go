// Package testutil provides shared helpers for package tests: an in-memory
// SQLite database with the full schema, a sqlmock-backed PostgreSQL
// connection for failure paths, catalog seeding and gin test contexts.
package testutil

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewSQLiteDB opens a private in-memory SQLite database migrated with every model.
// The pool is pinned to one connection so the memory database survives between queries.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err, "Failed to open SQLite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "Failed to migrate schema")
	return db
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a PostgreSQL-dialect GORM connection backed by sqlmock.
// The connection is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "Failed to open GORM connection")
	t.Cleanup(func() { _ = mockDB.Close() })

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// Product describes a catalog product row to seed
type Product struct {
	ID        int64
	SKU       string
	Name      string
	CostPrice string // decimal literal, empty for none
	Stock     *int
}

// SeedProduct inserts a synced catalog product.
func SeedProduct(t *testing.T, db *gorm.DB, p Product) {
	t.Helper()
	require.NoError(t, db.Create(&models.CatalogProductModel{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		CostPrice:     decimalPtr(p.CostPrice),
		StockQuantity: p.Stock,
		SyncedAt:      time.Now().UTC(),
	}).Error)
}

// SeedVariation inserts a synced catalog variation of parentID.
func SeedVariation(t *testing.T, db *gorm.DB, parentID int64, p Product) {
	t.Helper()
	require.NoError(t, db.Create(&models.CatalogVariationModel{
		ID:            p.ID,
		ParentID:      parentID,
		SKU:           p.SKU,
		Name:          p.Name,
		CostPrice:     decimalPtr(p.CostPrice),
		StockQuantity: p.Stock,
		SyncedAt:      time.Now().UTC(),
	}).Error)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func decimalPtr(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d := decimal.RequireFromString(s)
	return &d
}

// TestContext wraps a Gin test context with HTTP recorder.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
	Engine   *gin.Engine
}

// NewTestContext creates a new Gin test context.
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, engine := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return &TestContext{Context: c, Recorder: w, Engine: engine}
}
