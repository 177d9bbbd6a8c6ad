package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8888/callback",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}
}

func TestCallbackHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(""), "state")
		routes := h.Routes()
		if len(routes) != 1 || routes[0] != "/callback" {
			t.Errorf("unexpected routes: %v", routes)
		}
	})

	t.Run("Successful Exchange", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"granted","token_type":"Bearer","refresh_token":"refresh"}`))
		}))
		defer tokenSrv.Close()

		h := NewCallbackHandler(testConfig(tokenSrv.URL), "good_state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=good_state&code=auth_code", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Spotify Connected") {
			t.Error("expected the success page")
		}

		result := <-h.Result()
		if result.Error() != nil {
			t.Fatalf("expected no error, got %v", result.Error())
		}
		if result.Token == nil || result.Token.AccessToken != "granted" {
			t.Errorf("unexpected token: %+v", result.Token)
		}

		if _, open := <-h.Result(); open {
			t.Error("result channel should be closed after delivery")
		}
	})

	t.Run("Invalid State", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(""), "good_state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=forged&code=auth_code", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Error() == nil {
			t.Error("expected a state validation error")
		}
	})

	t.Run("Provider Denied", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(""), "good_state")

		req := httptest.NewRequest(http.MethodGet, "/callback?state=good_state&error=access_denied&error_description=user+said+no", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected denial error, got %v", result.Error())
		}
	})

	t.Run("Second Callback Rejected", func(t *testing.T) {
		h := NewCallbackHandler(testConfig(""), "good_state")

		first := httptest.NewRequest(http.MethodGet, "/callback?state=forged", nil)
		h.ServeHTTP(httptest.NewRecorder(), first)

		second := httptest.NewRequest(http.MethodGet, "/callback?state=good_state&code=auth_code", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, second)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
	})
}

func TestRouter(t *testing.T) {
	t.Run("Routes Requests Through Middleware", func(t *testing.T) {
		var order []string

		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(routesFunc{paths: []string{"/ping"}, fn: func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
			w.WriteHeader(http.StatusNoContent)
		}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected middleware order: %v", order)
		}
	})

	t.Run("Unknown Path", func(t *testing.T) {
		router := NewRouter()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nothing", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

// routesFunc adapts a plain function to the Handler interface for tests.
type routesFunc struct {
	paths []string
	fn    http.HandlerFunc
}

func (r routesFunc) Routes() []string                            { return r.paths }
func (r routesFunc) ServeHTTP(w http.ResponseWriter, q *http.Request) { r.fn(w, q) }
