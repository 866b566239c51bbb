package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/api/middleware"
	checkoutsvc "github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/stripe"
)

type stubCheckoutService struct {
	createInput checkoutsvc.CreateSessionInput
	fulfillUser uuid.UUID
	fulfillID   string
	fulfill     *checkoutsvc.FulfillResult
	err         error
}

func (s *stubCheckoutService) CreateSession(_ context.Context, input checkoutsvc.CreateSessionInput) (*checkoutsvc.SessionResult, error) {
	s.createInput = input
	if s.err != nil {
		return nil, s.err
	}
	return &checkoutsvc.SessionResult{SessionID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (s *stubCheckoutService) Fulfill(_ context.Context, userID uuid.UUID, sessionID string) (*checkoutsvc.FulfillResult, error) {
	s.fulfillUser = userID
	s.fulfillID = sessionID
	if s.err != nil {
		return nil, s.err
	}
	return s.fulfill, nil
}

func (s *stubCheckoutService) FulfillSession(context.Context, *stripe.Session) (*checkoutsvc.FulfillResult, error) {
	return nil, errors.New("not used")
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data  map[string]any `json:"data"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	if envelope.Error.Code != "" {
		return map[string]any{"error": envelope.Error.Code}
	}
	return envelope.Data
}

func TestCheckoutCreateSession(t *testing.T) {
	svc := &stubCheckoutService{}
	userID := uuid.New()
	shipping, billing := uuid.New(), uuid.New()
	body := `{"shippingAddressId":"` + shipping.String() + `","billingAddressId":"` + billing.String() + `"}`

	rec := httptest.NewRecorder()
	CheckoutCreateSession(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/checkout/create-session", body, userID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if data := decodeData(t, rec); data["sessionId"] != "cs_test_1" {
		t.Fatalf("unexpected payload %v", data)
	}
	if svc.createInput.UserID != userID || svc.createInput.ShippingAddressID != shipping || svc.createInput.BillingAddressID != billing {
		t.Fatalf("unexpected service input %+v", svc.createInput)
	}
}

func TestCheckoutCreateSessionRequiresAddresses(t *testing.T) {
	svc := &stubCheckoutService{}
	rec := httptest.NewRecorder()
	CheckoutCreateSession(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"shippingAddressId":"`+uuid.NewString()+`"}`, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.createInput.UserID != uuid.Nil {
		t.Fatal("service should not run on invalid body")
	}
}

func TestCheckoutCreateSessionMapsEmptyCart(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
	body := `{"shippingAddressId":"` + uuid.NewString() + `","billingAddressId":"` + uuid.NewString() + `"}`
	rec := httptest.NewRecorder()
	CheckoutCreateSession(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", body, uuid.New()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if data := decodeData(t, rec); data["error"] != string(pkgerrors.CodeEmptyCart) {
		t.Fatalf("unexpected error payload %v", data)
	}
}

func TestCheckoutRequiresIdentity(t *testing.T) {
	svc := &stubCheckoutService{}
	rec := httptest.NewRecorder()
	CheckoutFulfill(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sessionId":"cs_1"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCheckoutFulfill(t *testing.T) {
	orderID := uuid.New()
	userID := uuid.New()

	svc := &stubCheckoutService{fulfill: &checkoutsvc.FulfillResult{OrderID: orderID}}
	rec := httptest.NewRecorder()
	CheckoutFulfill(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"sessionId":" cs_1 "}`, userID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for a new order, got %d", rec.Code)
	}
	if data := decodeData(t, rec); data["orderId"] != orderID.String() {
		t.Fatalf("unexpected payload %v", data)
	}
	if svc.fulfillID != "cs_1" || svc.fulfillUser != userID {
		t.Fatalf("unexpected service args %q %s", svc.fulfillID, svc.fulfillUser)
	}

	svc.fulfill = &checkoutsvc.FulfillResult{OrderID: orderID, Duplicate: true}
	rec = httptest.NewRecorder()
	CheckoutFulfill(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"sessionId":"cs_1"}`, userID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a repeat, got %d", rec.Code)
	}
	if data := decodeData(t, rec); data["orderId"] != orderID.String() {
		t.Fatalf("expected same order id on repeat, got %v", data)
	}
	if strings.Contains(rec.Body.String(), "Duplicate") {
		t.Fatalf("duplicate flag should not be serialized: %s", rec.Body.String())
	}
}

func TestCheckoutFulfillMapsPaymentIncomplete(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment not successful")}
	rec := httptest.NewRecorder()
	CheckoutFulfill(svc, nil).ServeHTTP(rec, authedRequest(http.MethodPost, "/", `{"sessionId":"cs_1"}`, uuid.New()))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(envHeader) != "dev" {
		t.Fatalf("expected env header")
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("down")}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"down"`) {
		t.Fatalf("expected failing dependency in details: %s", rec.Body.String())
	}
}
