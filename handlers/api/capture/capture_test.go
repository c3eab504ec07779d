package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Pabi691/custom-clothology/canvas"
	"github.com/Pabi691/custom-clothology/clients/commerce"
	"github.com/Pabi691/custom-clothology/compositor"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/middleware"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/go-chi/chi/v5"
)

// Mock capturer for testing
type mockCapturer struct {
	mu    sync.Mutex
	sides []core.Side
	err   error
}

func (m *mockCapturer) Capture(ctx context.Context, snap core.Snapshot, side core.Side, opts compositor.Options) (*compositor.Capture, error) {
	m.mu.Lock()
	m.sides = append(m.sides, side)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &compositor.Capture{Side: side, DataURI: "data:image/png;base64," + string(side)}, nil
}

// Mock cart for testing
type mockCart struct {
	items  []commerce.CartItem
	token  string
	result *commerce.CartResult
	err    error
}

func (m *mockCart) AddToCart(ctx context.Context, token string, item commerce.CartItem) (*commerce.CartResult, error) {
	m.token = token
	m.items = append(m.items, item)
	if m.result == nil && m.err == nil {
		return &commerce.CartResult{Status: true}, nil
	}
	return m.result, m.err
}

func newSession(t *testing.T) *session.Session {
	t.Helper()
	reg := session.NewRegistry(time.Hour, 0)
	t.Cleanup(reg.Close)
	return reg.Create("shopper-token", session.Product{Slug: "tee", ProductID: "42", Price: 19.99}, commerce.Product{})
}

func serve(h http.HandlerFunc, s *session.Session, target string, params map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", target, nil)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithSession(ctx, s)
	rr := httptest.NewRecorder()
	h(rr, req.WithContext(ctx))
	return rr
}

func realCompositor() *compositor.Compositor {
	return compositor.New(canvas.Default, compositor.NewLoader(nil), compositor.NewFonts(""), 0)
}

func TestHandleRender_PNG(t *testing.T) {
	s := newSession(t)
	rr := serve(HandleRender(realCompositor()), s, "/api/v1/render/back", map[string]string{"side": "back"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("Body is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1000 || b.Dy() != 1200 {
		t.Errorf("Size mismatch: %v", b)
	}
	if s.Store.Snapshot().Side != core.SideFront {
		t.Error("Render changed the active side")
	}
}

func TestHandleRender_JSON(t *testing.T) {
	s := newSession(t)
	rr := serve(HandleRender(realCompositor()), s, "/api/v1/render/front?format=json&region=printable", map[string]string{"side": "front"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var res compositor.Capture
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("Failed to decode capture: %v", err)
	}
	if res.Side != core.SideFront || res.Width != 350 || res.Height != 480 {
		t.Errorf("Capture mismatch: %+v", res)
	}
	if !strings.HasPrefix(res.DataURI, "data:image/png;base64,") {
		t.Errorf("DataURI mismatch: %.40q", res.DataURI)
	}
}

func TestHandleRender_BadInput(t *testing.T) {
	s := newSession(t)
	if rr := serve(HandleRender(realCompositor()), s, "/", map[string]string{"side": "left"}); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad side, got %d", rr.Code)
	}
	if rr := serve(HandleRender(realCompositor()), s, "/?region=sleeve", map[string]string{"side": "front"}); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad region, got %d", rr.Code)
	}
	if rr := serve(HandleRender(&mockCapturer{err: compositor.ErrCapture}), s, "/", map[string]string{"side": "front"}); rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for capture failure, got %d", rr.Code)
	}
}

func TestHandleDownload(t *testing.T) {
	s := newSession(t)
	rr := serve(HandleDownload(realCompositor()), s, "/", map[string]string{"side": "back"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="tshirt-design-back.png"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	img, err := png.Decode(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("Body is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 350 || b.Dy() != 480 {
		t.Errorf("Printable size mismatch: %v", b)
	}
}

func TestHandleAddToCart(t *testing.T) {
	s := newSession(t)
	s.Store.SetOptions(core.ProductOptions{Color: "black", Size: "L"})
	c := &mockCapturer{}
	cart := &mockCart{}

	rr := serve(HandleAddToCart(c, cart), s, "/api/v1/cart", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(c.sides) != 2 || c.sides[0] != core.SideFront || c.sides[1] != core.SideBack {
		t.Errorf("Sides captured: %v", c.sides)
	}
	if cart.token != "shopper-token" {
		t.Errorf("Token mismatch: %q", cart.token)
	}
	item := cart.items[0]
	if item.FrontImage == item.BackImage {
		t.Error("Front and back images are identical")
	}
	want := commerce.CartItem{
		ProductID:       "42",
		ProdVariationID: "L",
		VariationID:     "L",
		Quantity:        1,
		Price:           19.99,
		Color:           "black",
		Size:            "L",
		FrontImage:      "data:image/png;base64,front",
		BackImage:       "data:image/png;base64,back",
	}
	if item != want {
		t.Errorf("Cart item mismatch:\n got %+v\nwant %+v", item, want)
	}
	body, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Failed to encode cart item: %v", err)
	}
	if !strings.Contains(string(body), `"price":19.99,`) {
		t.Errorf("Price not encoded as a number: %s", body)
	}
}

func TestHandleAddToCart_CaptureFailureSubmitsNothing(t *testing.T) {
	s := newSession(t)
	cart := &mockCart{}
	rr := serve(HandleAddToCart(&mockCapturer{err: compositor.ErrCapture}, cart), s, "/api/v1/cart", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
	if len(cart.items) != 0 {
		t.Errorf("Cart received %d items", len(cart.items))
	}
}

func TestHandleAddToCart_Rejected(t *testing.T) {
	s := newSession(t)
	cart := &mockCart{
		result: &commerce.CartResult{Status: false, Message: "out of stock"},
		err:    commerce.ErrCartRejected,
	}
	rr := serve(HandleAddToCart(&mockCapturer{}, cart), s, "/api/v1/cart", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "out of stock") {
		t.Errorf("Message missing: %s", rr.Body.String())
	}

	cart = &mockCart{err: errors.New("connection refused")}
	rr = serve(HandleAddToCart(&mockCapturer{}, cart), s, "/api/v1/cart", nil)
	if rr.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", rr.Code)
	}
}
