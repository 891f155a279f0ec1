package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/fnsdeividy/sales-pdv-backend/internal/middleware"
	"github.com/fnsdeividy/sales-pdv-backend/internal/production/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema  = "test_pdv"
	JWTSecret   = "pdv-test-jwt-secret"
	TestStoreID = "store-test-001"
)

// TestEnv recursos do ambiente de teste
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot sobe diretórios até achar o go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB abre uma conexão de teste usando um schema exclusivo.
// Cada teste ganha um schema isolado, removido no final.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "pdv")
	password := getEnv("DB_PASSWORD", "pdv123")
	dbname := getEnv("DB_NAME", "pdv_test")

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	schemaName := fmt.Sprintf("%s_%d", TestSchema, time.Now().UnixNano()%1000000)

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database for schema setup: %v", err)
	}
	setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName))
	sqlSetup, _ := setupDB.DB()
	sqlSetup.Close()

	// search_path no DSN para que todas as conexões do pool usem o schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			sqlClean, _ := cleanDB.DB()
			if sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter roteador gin de teste
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup grupo de rotas com autenticação JWT de teste
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken token JWT válido associado a uma loja
func GenerateTestToken(userID, name, storeID, role string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"uid":      userID,
		"name":     name,
		"store_id": storeID,
		"role":     role,
		"iss":      "sales-pdv",
		"iat":      now.Unix(),
		"exp":      now.Add(24 * time.Hour).Unix(),
		"jti":      fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken token de um admin da loja padrão de teste
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Admin", TestStoreID, "admin")
}

// DoRequest executa uma requisição HTTP contra o roteador de teste
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse decodifica o corpo JSON da resposta
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedMaterial cria um insumo de teste
func SeedMaterial(t *testing.T, db *gorm.DB, storeID, name, baseUnit string) *entity.Material {
	t.Helper()
	m := &entity.Material{
		ID:       uuid.New().String(),
		StoreID:  storeID,
		Name:     name,
		SKU:      "SKU-" + name,
		BaseUnit: baseUnit,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("Failed to seed material: %v", err)
	}
	return m
}

// SeedBatch cria um lote disponível de um insumo
func SeedBatch(t *testing.T, db *gorm.DB, m *entity.Material, qty, unitCost decimal.Decimal, receivedAt time.Time) *entity.MaterialBatch {
	t.Helper()
	b := &entity.MaterialBatch{
		ID:         uuid.New().String(),
		StoreID:    m.StoreID,
		MaterialID: m.ID,
		Quantity:   qty,
		Unit:       m.BaseUnit,
		UnitCost:   unitCost,
		TotalCost:  qty.Mul(unitCost),
		Status:     entity.BatchStatusAvailable,
		ReceivedAt: receivedAt,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("Failed to seed batch: %v", err)
	}
	return b
}

// SeedProduct cria um produto de teste
func SeedProduct(t *testing.T, db *gorm.DB, storeID, name string) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:       uuid.New().String(),
		StoreID:  storeID,
		Name:     name,
		BaseUnit: "un",
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

// SeedBomLine cria uma linha de ficha técnica (base de 100 unidades)
func SeedBomLine(t *testing.T, db *gorm.DB, p *entity.Product, m *entity.Material, qty decimal.Decimal, unit string, wastePercent decimal.Decimal) *entity.ProductBom {
	t.Helper()
	line := &entity.ProductBom{
		ID:           uuid.New().String(),
		StoreID:      p.StoreID,
		ProductID:    p.ID,
		MaterialID:   m.ID,
		Quantity:     qty,
		Unit:         unit,
		WastePercent: wastePercent,
	}
	if err := db.Create(line).Error; err != nil {
		t.Fatalf("Failed to seed bom line: %v", err)
	}
	return line
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
