package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/api/middleware"
	cartsvc "github.com/angelmondragon/marketplace-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type call struct {
	op        string
	userID    uuid.UUID
	productID uuid.UUID
	qty       int
}

type stubCartService struct {
	calls []call
	err   error
}

func (s *stubCartService) record(c call) (*cartsvc.View, error) {
	s.calls = append(s.calls, c)
	if s.err != nil {
		return nil, s.err
	}
	return &cartsvc.View{Items: []cartsvc.LineView{}}, nil
}

func (s *stubCartService) Get(_ context.Context, userID uuid.UUID) (*cartsvc.View, error) {
	return s.record(call{op: "get", userID: userID})
}

func (s *stubCartService) Add(_ context.Context, userID, productID uuid.UUID, qty int) (*cartsvc.View, error) {
	return s.record(call{op: "add", userID: userID, productID: productID, qty: qty})
}

func (s *stubCartService) SetQuantity(_ context.Context, userID, productID uuid.UUID, qty int) (*cartsvc.View, error) {
	return s.record(call{op: "set", userID: userID, productID: productID, qty: qty})
}

func (s *stubCartService) Remove(_ context.Context, userID, productID uuid.UUID) (*cartsvc.View, error) {
	return s.record(call{op: "remove", userID: userID, productID: productID})
}

func newRouter(svc cartsvc.Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/cart", CartFetch(svc, nil))
	r.Post("/cart", CartAddItem(svc, nil))
	r.Put("/cart/{productId}", CartSetQuantity(svc, nil))
	r.Delete("/cart/{productId}", CartRemoveItem(svc, nil))
	return r
}

func serve(r http.Handler, method, target, body string, userID uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != uuid.Nil {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCartRoutes(t *testing.T) {
	svc := &stubCartService{}
	r := newRouter(svc)
	userID := uuid.New()
	productID := uuid.New()

	if rec := serve(r, http.MethodGet, "/cart", "", userID); rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodPost, "/cart", `{"productId":"`+productID.String()+`","quantity":2}`, userID); rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := serve(r, http.MethodPut, "/cart/"+productID.String(), `{"quantity":0}`, userID); rec.Code != http.StatusOK {
		t.Fatalf("set: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := serve(r, http.MethodDelete, "/cart/"+productID.String(), "", userID); rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d", rec.Code)
	}

	want := []call{
		{op: "get", userID: userID},
		{op: "add", userID: userID, productID: productID, qty: 2},
		{op: "set", userID: userID, productID: productID, qty: 0},
		{op: "remove", userID: userID, productID: productID},
	}
	if len(svc.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(svc.calls))
	}
	for i := range want {
		if svc.calls[i] != want[i] {
			t.Fatalf("call %d: expected %+v got %+v", i, want[i], svc.calls[i])
		}
	}
}

func TestCartRejectsBadInput(t *testing.T) {
	svc := &stubCartService{}
	r := newRouter(svc)
	userID := uuid.New()

	cases := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"zero quantity add", http.MethodPost, "/cart", `{"productId":"` + uuid.NewString() + `","quantity":0}`, http.StatusBadRequest},
		{"missing product", http.MethodPost, "/cart", `{"quantity":1}`, http.StatusBadRequest},
		{"bad product id", http.MethodPut, "/cart/not-a-uuid", `{"quantity":1}`, http.StatusBadRequest},
		{"negative quantity", http.MethodPut, "/cart/" + uuid.NewString(), `{"quantity":-1}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rec := serve(r, tc.method, tc.target, tc.body, userID); rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
	if len(svc.calls) != 0 {
		t.Fatalf("service should not be called on invalid input, got %d calls", len(svc.calls))
	}

	if rec := serve(r, http.MethodGet, "/cart", "", uuid.Nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestCartMapsServiceErrors(t *testing.T) {
	svc := &stubCartService{err: pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")}
	r := newRouter(svc)
	if rec := serve(r, http.MethodDelete, "/cart/"+uuid.NewString(), "", uuid.New()); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
