package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hpmsklad/server/internal/database"
	"hpmsklad/server/internal/models"
	"hpmsklad/server/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "tajneheslo123"

// testServer роутер над SQLite в памяти и токены пользователей
type testServer struct {
	db     *gorm.DB
	svc    Services
	hub    *Hub
	router *gin.Engine
	admin  string // токен суперпользователя
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.New().String())
	db, err := database.OpenSQLite(dsn)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	sklad := services.NewSkladService(db)
	audit := services.NewAuditLogService(db)
	dodavatele := services.NewDodavatelService(db)
	poptavky := services.NewPoptavkaService(db)
	movements := services.NewMovementService(db)
	movements.SetSkladService(sklad)
	varianty := services.NewVariantaService(db)
	varianty.SetSkladService(sklad)

	svc := Services{
		Auth:       services.NewAuthService(db, "test-secret"),
		Sklad:      sklad,
		Movements:  movements,
		AuditLog:   audit,
		Dodavatele: dodavatele,
		Zarizeni:   services.NewZarizeniService(db),
		Varianty:   varianty,
		Poptavky:   poptavky,
		Export:     services.NewExportService(sklad, audit, dodavatele, poptavky),
		Import:     services.NewImportService(sklad),
		Report:     services.NewReportService(audit),
	}
	hub := NewHub()
	movements.SetNotifier(hub)

	ts := &testServer{db: db, svc: svc, hub: hub, router: NewRouter(svc, hub)}
	ts.admin = ts.login(t, "admin", services.CreateUserInput{IsSuperuser: true})
	return ts
}

// login создает пользователя и возвращает его токен
func (ts *testServer) login(t *testing.T, username string, in services.CreateUserInput) string {
	t.Helper()
	in.Username = username
	in.Email = username + "@hpm.test"
	in.Password = testPassword
	_, err := ts.svc.Auth.CreateUser(context.Background(), in)
	require.NoError(t, err)
	res, err := ts.svc.Auth.Login(context.Background(), username, testPassword)
	require.NoError(t, err)
	return res.Token
}

// do выполняет запрос; body кодируется в JSON, если это не []byte
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

// createItem создает позицию через API от имени суперпользователя
func (ts *testServer) createItem(t *testing.T, in services.SkladInput) models.Sklad {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/sklad", ts.admin, in)
	requireStatus(t, w, http.StatusCreated)
	var item models.Sklad
	decode(t, w, &item)
	return item
}

func (ts *testServer) createDodavatel(t *testing.T, name string) models.Dodavatel {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/dodavatele", ts.admin, services.DodavatelInput{Dodavatel: name, Jazyk: "DE"})
	requireStatus(t, w, http.StatusCreated)
	var d models.Dodavatel
	decode(t, w, &d)
	return d
}

func (ts *testServer) createZarizeni(t *testing.T, kod string) models.Zarizeni {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/v1/zarizeni", ts.admin, services.ZarizeniInput{
		KodZarizeni: kod, NazevZarizeni: "Lis " + kod, Umisteni: "Hala 1", TypZarizeni: "Lis",
	})
	requireStatus(t, w, http.StatusCreated)
	var z models.Zarizeni
	decode(t, w, &z)
	return z
}
