package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func serve(t *testing.T, h http.Handler, method, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouterProvider_GetAddsRoute(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/students", namedHandler("ok"))

	routes := rp.GetRoutes()
	require.Len(t, routes, 1)
	assert.Equal(t, "/students", routes[0].Url)
}

func TestRouterProvider_KeepsRegistrationOrder(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/a", namedHandler("a"))
	rp.Post("/b", namedHandler("b"))
	rp.Get("/c", namedHandler("c"))

	routes := rp.GetRoutes()
	require.Len(t, routes, 3)
	assert.Equal(t, "/a", routes[0].Url)
	assert.Equal(t, "/b", routes[1].Url)
	assert.Equal(t, "/c", routes[2].Url)
}

func TestRouterProvider_SharedPathDispatchesByMethod(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/students", namedHandler("list"))
	rp.Post("/students", namedHandler("create"))

	routes := rp.GetRoutes()
	require.Len(t, routes, 1)

	assert.Equal(t, "list", serve(t, routes[0].Handler, http.MethodGet, "/students").Body.String())
	assert.Equal(t, "create", serve(t, routes[0].Handler, http.MethodPost, "/students").Body.String())
}

func TestRouterProvider_PutAndDelete(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/student", namedHandler("get"))
	rp.Put("/student", namedHandler("update"))
	rp.Delete("/student", namedHandler("delete"))

	routes := rp.GetRoutes()
	require.Len(t, routes, 1)

	assert.Equal(t, "update", serve(t, routes[0].Handler, http.MethodPut, "/student").Body.String())
	assert.Equal(t, "delete", serve(t, routes[0].Handler, http.MethodDelete, "/student").Body.String())
	rr := serve(t, routes[0].Handler, http.MethodPost, "/student")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "DELETE, GET, PUT", rr.Header().Get("Allow"))
}

func TestRouterProvider_RejectsUnregisteredMethod(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/students", namedHandler("list"))
	rp.Post("/students", namedHandler("create"))

	rr := serve(t, rp.GetRoutes()[0].Handler, http.MethodDelete, "/students")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, POST", rr.Header().Get("Allow"))
}

func TestRouterProvider_PostRouteRejectsGet(t *testing.T) {
	rp := NewRouterProvider()
	rp.Post("/sync", namedHandler("ok"))

	rr := serve(t, rp.GetRoutes()[0].Handler, http.MethodGet, "/sync")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
