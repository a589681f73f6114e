package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ashureev/kalnadai-care/internal/advisory"
	"github.com/ashureev/kalnadai-care/internal/config"
	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/identity"
	"github.com/ashureev/kalnadai-care/internal/realtime"
	"github.com/ashureev/kalnadai-care/internal/store"
)

type countingRepo struct {
	store.Repository
	lookups atomic.Int32
}

func (c *countingRepo) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	c.lookups.Add(1)
	return c.Repository.GetDevice(ctx, deviceID)
}

type noAdvice struct{}

func (noAdvice) Advise(context.Context, advisory.Request) (string, error) {
	return "", nil
}

func newTestRouter(t *testing.T) (http.Handler, *countingRepo) {
	t.Helper()
	sqlite, err := store.NewSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	repo := &countingRepo{Repository: sqlite}
	cfg := &config.Config{
		Port:            "8080",
		DefaultLanguage: domain.LanguageTamil,
		MaxUploadBytes:  1 << 20,
	}
	registry := conversation.NewRegistry(conversation.RegistryConfig{Advisor: noAdvice{}})
	return newRouter(cfg, repo, registry, realtime.NewHub()), repo
}

func TestStaticAssetsSkipDeviceIdentity(t *testing.T) {
	r, repo := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if cookie := rec.Header().Get("Set-Cookie"); cookie != "" {
		t.Errorf("Expected no device cookie for static assets, got %q", cookie)
	}
	if n := repo.lookups.Load(); n != 0 {
		t.Errorf("Expected no device lookups, got %d", n)
	}
}

func TestPagesEstablishDeviceIdentity(t *testing.T) {
	r, repo := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == identity.DeviceCookieName {
			found = true
		}
	}
	if !found {
		t.Error("Expected device cookie on page request")
	}
	if repo.lookups.Load() == 0 {
		t.Error("Expected device lookup on page request")
	}
}
