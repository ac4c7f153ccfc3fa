package accounts

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestDeactivateRequiresActorInBody(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil)
	_, err := svc.Register(context.Background(), RegisterInput{Code: "1220", Name: "Interest Receivable", Type: AccountTypeAsset, CreatedBy: "seed"})
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/1220/deactivate", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	account, err := svc.Lookup(context.Background(), "1220")
	require.NoError(t, err)
	require.True(t, account.IsActive)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/1220/deactivate", strings.NewReader(`{"actor":"ops"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	account, err = svc.Lookup(context.Background(), "1220")
	require.NoError(t, err)
	require.False(t, account.IsActive)
}
