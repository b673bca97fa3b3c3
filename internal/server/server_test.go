package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/smallsites/sitebill/internal/access"
	"github.com/smallsites/sitebill/internal/clock"
	"github.com/smallsites/sitebill/internal/config"
	ledgerdomain "github.com/smallsites/sitebill/internal/ledger/domain"
	ledgerrepo "github.com/smallsites/sitebill/internal/ledger/repository"
	"github.com/smallsites/sitebill/internal/notify"
	"github.com/smallsites/sitebill/internal/override"
	"github.com/smallsites/sitebill/internal/reconcile"
	registrydomain "github.com/smallsites/sitebill/internal/registry/domain"
	registryrepo "github.com/smallsites/sitebill/internal/registry/repository"
	registryservice "github.com/smallsites/sitebill/internal/registry/service"
	"github.com/smallsites/sitebill/internal/resolver"
	snapshotdomain "github.com/smallsites/sitebill/internal/snapshot/domain"
	snapshotrepo "github.com/smallsites/sitebill/internal/snapshot/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testAdminSecret = "test-admin-secret"

type serverFixture struct {
	db     *gorm.DB
	server *Server
	recon  *reconcile.Engine
	clock  *clock.FakeClock
}

func setupServerTest(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&registrydomain.Registration{},
		&ledgerdomain.PaymentEvent{},
		&snapshotdomain.AccountSnapshot{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())
	cfg := config.Config{AdminSecret: testAdminSecret}

	registryRepo := registryrepo.Provide()
	ledgerRepo := ledgerrepo.Provide()
	snapshotRepo := snapshotrepo.Provide()

	engine := reconcile.NewEngine(reconcile.Params{
		DB:           db,
		Log:          log,
		Clock:        fake,
		Billing:      holder,
		RegistryRepo: registryRepo,
		LedgerRepo:   ledgerRepo,
		SnapshotRepo: snapshotRepo,
	})

	resolverSvc := resolver.New(resolver.Params{
		DB:           db,
		Log:          log,
		Billing:      holder,
		RegistryRepo: registryRepo,
		LedgerRepo:   ledgerRepo,
		SnapshotRepo: snapshotRepo,
	})

	overrideSvc := override.New(override.Params{
		DB:           db,
		Log:          log,
		Config:       cfg,
		RegistryRepo: registryRepo,
		Notifier:     &notify.NoOpProvider{},
	})

	gateSvc := access.New(access.Params{
		DB:           db,
		Log:          log,
		RegistryRepo: registryRepo,
		Resolver:     resolverSvc,
	})

	registrySvc := registryservice.New(registryservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  registryRepo,
	})

	dispatcher := reconcile.NewDispatcher(engine, log, reconcile.DefaultConfig(), nil)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:          r,
		Cfg:          cfg,
		DB:           db,
		Log:          log,
		Clock:        fake,
		GenID:        node,
		RegistrySvc:  registrySvc,
		LedgerRepo:   ledgerRepo,
		SnapshotRepo: snapshotRepo,
		ResolverSvc:  resolverSvc,
		OverrideSvc:  overrideSvc,
		AccessGate:   gateSvc,
		Dispatcher:   dispatcher,
	})

	return &serverFixture{db: db, server: srv, recon: engine, clock: fake}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
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
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestWebhookToStatus_EndToEnd(t *testing.T) {
	f := setupServerTest(t)

	w := f.do(t, http.MethodPost, "/api/v1/signup", map[string]any{
		"email":  "ana@example.com",
		"siteId": "ana-flores",
		"plan":   "essential",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/billing/link", map[string]any{
		"siteId":          "ANA-FLORES",
		"subscriptionRef": "sub-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/webhooks/payments/mercadopago", map[string]any{
		"event":           "payment.updated",
		"action":          "payment.updated",
		"subscriptionRef": "sub-1",
		"status":          "approved",
		"payer_email":     "ana@example.com",
		"amount":          39.90,
		"currency":        "BRL",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "ledger", body["wrote"])

	// The dispatcher is not running in tests; run the engine directly the
	// way the worker would.
	require.NoError(t, f.recon.ReconcileAll(context.Background()))

	w = f.do(t, http.MethodGet, "/api/v1/billing/status?email=ana@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "approved", body["status"])
	assert.Equal(t, false, body["manual_block"])
	assert.NotNil(t, body["next_renewal"])
	assert.NotNil(t, body["last_payment"])
}

func TestWebhook_EmptyEventAcknowledgedNotWritten(t *testing.T) {
	f := setupServerTest(t)

	w := f.do(t, http.MethodPost, "/webhooks/payments/mercadopago", map[string]any{
		"action": "ping",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	_, wrote := body["wrote"]
	assert.False(t, wrote)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.PaymentEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestWebhook_MalformedBodyAcknowledged(t *testing.T) {
	f := setupServerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments/mercadopago", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.PaymentEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAdminOverride_BlockThenAccessDenied(t *testing.T) {
	f := setupServerTest(t)

	w := f.do(t, http.MethodPost, "/api/v1/signup", map[string]any{
		"email":  "ana@example.com",
		"siteId": "ANA-FLORES",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/admin/override", map[string]any{
		"siteId":      "ANA-FLORES",
		"manualBlock": true,
		"adminToken":  testAdminSecret,
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, true, body["manualBlock"])

	w = f.do(t, http.MethodGet, "/api/v1/access/ANA-FLORES", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, false, body["enabled"])

	w = f.do(t, http.MethodGet, "/api/v1/billing/status?email=ana@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, true, body["manual_block"])
}

func TestAdminOverride_WrongToken(t *testing.T) {
	f := setupServerTest(t)

	w := f.do(t, http.MethodPost, "/api/v1/admin/override", map[string]any{
		"siteId":      "ANA-FLORES",
		"manualBlock": true,
		"adminToken":  "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "unauthorized", body["error"])
}

func TestAdminOverride_UnknownSite(t *testing.T) {
	f := setupServerTest(t)

	w := f.do(t, http.MethodPost, "/api/v1/admin/override", map[string]any{
		"siteId":      "GHOST-SITE",
		"manualBlock": true,
		"adminToken":  testAdminSecret,
	})
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "site_not_found", body["error"])
}

func TestAdminSnapshots_RequiresToken(t *testing.T) {
	f := setupServerTest(t)

	w := f.do(t, http.MethodGet, "/api/v1/admin/snapshots", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/snapshots", nil)
	req.Header.Set(adminTokenHeader, testAdminSecret)
	rec := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
}

func TestBillingStatus_MissingEmail(t *testing.T) {
	f := setupServerTest(t)

	w := f.do(t, http.MethodGet, "/api/v1/billing/status", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "missing_email", body["error"])
}
