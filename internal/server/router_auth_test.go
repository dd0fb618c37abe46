package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/daytally/backend/internal/auth"
	"github.com/daytally/backend/internal/trips"
)

func TestAuthorizeRequestRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/trips", http.NoBody)

	handler := &httpHandler{
		sessions: stubSessionAuthenticator{
			requestErr: auth.ErrMissingSessionToken,
			tokenErr:   auth.ErrMissingSessionToken,
		},
		identities: stubIdentityResolver{userID: "user-1"},
		logger:     zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if recorder.Body.String() != `{"error":"unauthorized"}` {
		t.Fatalf("unexpected body: %s", recorder.Body.String())
	}
}

func TestAuthorizeRequestRejectsFailedIdentityResolution(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/trips", http.NoBody)

	handler := &httpHandler{
		sessions:   stubSessionAuthenticator{claims: auth.SessionClaims{UserID: "tauth:user-1"}},
		identities: stubIdentityResolver{err: errors.New("database offline")},
		logger:     zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestAuthorizeRequestAcceptsAccessTokenQueryFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/trips/stream?access_token=query-token", http.NoBody)

	handler := &httpHandler{
		sessions: stubSessionAuthenticator{
			claims:     auth.SessionClaims{UserID: "tauth:user-1"},
			requestErr: auth.ErrMissingSessionToken,
		},
		identities: stubIdentityResolver{userID: "canonical-1"},
		logger:     zap.NewNop(),
	}

	handler.authorizeRequest(ctx)

	if recorder.Code == http.StatusUnauthorized {
		t.Fatalf("expected query token to authenticate, got %d", recorder.Code)
	}
	if got := ctx.GetString(userIDContextKey); got != "canonical-1" {
		t.Fatalf("expected canonical user id in context, got %q", got)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	handler, err := NewHTTPHandler(Dependencies{
		Sessions: stubSessionAuthenticator{
			requestErr: auth.ErrMissingSessionToken,
			tokenErr:   auth.ErrMissingSessionToken,
		},
		Identities:   stubIdentityResolver{},
		TripsService: newUnreachableTripsService(t),
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}

	routes := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/trips"},
		{http.MethodPost, "/trips"},
		{http.MethodPatch, "/trips/trip-1"},
		{http.MethodDelete, "/trips/trip-1"},
		{http.MethodDelete, "/trips"},
		{http.MethodPost, "/trips/import"},
		{http.MethodGet, "/trips/export"},
		{http.MethodGet, "/trips/stream"},
	}

	for _, route := range routes {
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(route.method, route.target, http.NoBody))
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.target, recorder.Code)
		}
	}
}

// newUnreachableTripsService builds a service the auth tests must never reach.
func newUnreachableTripsService(t *testing.T) *trips.Service {
	t.Helper()
	_, service := newTestRouter(t, "unused")
	return service
}
