package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Pabi691/custom-clothology/clients/commerce"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/golang-jwt/jwt/v5"
)

// Mock product fetcher for testing
type mockProducts struct {
	product *commerce.Product
	err     error
	token   string
}

func (m *mockProducts) Product(ctx context.Context, token, slug string) (*commerce.Product, error) {
	m.token = token
	return m.product, m.err
}

func newGate(t *testing.T, products ProductFetcher) (*Gate, *session.Registry) {
	t.Helper()
	reg := session.NewRegistry(time.Hour, 0)
	t.Cleanup(reg.Close)
	return NewGate("test-secret", "https://shop.example/login", "default", reg, products), reg
}

func TestHandleStart_RedirectsWithoutToken(t *testing.T) {
	g, reg := newGate(t, &mockProducts{})

	for _, target := range []string{
		"/start?slug=tee&productId=1&price=10",
		"/start?token=default&slug=tee&productId=1&price=10",
	} {
		req := httptest.NewRequest("GET", target, nil)
		rr := httptest.NewRecorder()
		g.HandleStart(rr, req)

		if rr.Code != http.StatusTemporaryRedirect {
			t.Fatalf("%s: expected 307, got %d", target, rr.Code)
		}
		loc, err := url.Parse(rr.Header().Get("Location"))
		if err != nil {
			t.Fatalf("Bad Location: %v", err)
		}
		if loc.Host != "shop.example" || loc.Path != "/login" {
			t.Errorf("Redirect target mismatch: %s", loc)
		}
		if back := loc.Query().Get("redirect"); !strings.HasSuffix(back, target) {
			t.Errorf("Redirect back mismatch: %q", back)
		}
	}
	if reg.Len() != 0 {
		t.Errorf("Sessions created without a token: %d", reg.Len())
	}
}

func TestHandleStart_BadParameters(t *testing.T) {
	products := &mockProducts{product: &commerce.Product{}}
	g, reg := newGate(t, products)

	for _, query := range []string{
		"slug=tee",
		"slug=tee&productId=1&price=10&selectedSize=M",
		"slug=tee&productId=1&price=10&selectedColor=black",
		"slug=tee&productId=1&price=abc&selectedColor=black&selectedSize=M",
		"slug=tee&productId=1&price=NaN&selectedColor=black&selectedSize=M",
		"slug=tee&productId=1&price=-5&selectedColor=black&selectedSize=M",
		"slug=tee&productId=1&price=10&selectedColor=purple&selectedSize=M",
		"slug=tee&productId=1&price=10&selectedColor=black&selectedSize=XXXL",
	} {
		rr := httptest.NewRecorder()
		g.HandleStart(rr, httptest.NewRequest("GET", "/start?token=abc&"+query, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, rr.Code)
		}
	}
	if reg.Len() != 0 {
		t.Errorf("Sessions created from bad parameters: %d", reg.Len())
	}
	if products.token != "" {
		t.Error("Product looked up for a rejected request")
	}
}

func TestHandleStart_ProductErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", commerce.ErrProductNotFound, http.StatusNotFound},
		{"upstream", context.DeadlineExceeded, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, reg := newGate(t, &mockProducts{err: tt.err})
			req := httptest.NewRequest("GET", "/start?token=abc&slug=tee&productId=1&price=10&selectedColor=white&selectedSize=L", nil)
			rr := httptest.NewRecorder()
			g.HandleStart(rr, req)

			if rr.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rr.Code)
			}
			if reg.Len() != 0 {
				t.Error("Session created despite product error")
			}
		})
	}
}

func TestHandleStart_CreatesSession(t *testing.T) {
	products := &mockProducts{product: &commerce.Product{Front: "f.png", Back: "b.png"}}
	g, reg := newGate(t, products)

	req := httptest.NewRequest("GET", "/start?token=abc&slug=tee&productId=42&price=19.99&selectedColor=black&selectedSize=M", nil)
	rr := httptest.NewRecorder()
	g.HandleStart(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if products.token != "abc" {
		t.Errorf("Product lookup used token %q", products.token)
	}

	var body struct {
		Token   string `json:"token"`
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}

	claims, err := g.ParseJWT(body.Token)
	if err != nil {
		t.Fatalf("ParseJWT() failed: %v", err)
	}
	if claims.Subject != body.Session.ID {
		t.Errorf("Subject %q does not match session %q", claims.Subject, body.Session.ID)
	}

	s, err := reg.Get(claims.Subject)
	if err != nil {
		t.Fatalf("Session not registered: %v", err)
	}
	if s.Token != "abc" || s.Product.ProductID != "42" || s.Product.Price != 19.99 || s.Garment.Back != "b.png" {
		t.Errorf("Session mismatch: %+v", s)
	}
	if opts := s.Store.Snapshot().Options; opts.Color != "#000000" || opts.Size != "M" {
		t.Errorf("Options mismatch: %+v", opts)
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != body.Token || !cookie.HttpOnly {
		t.Errorf("Session cookie mismatch: %+v", cookie)
	}
}

func TestParseJWT(t *testing.T) {
	g, _ := newGate(t, &mockProducts{})
	other, _ := newGate(t, &mockProducts{})
	other.secret = []byte("other-secret")

	token, err := g.createJWT("S1", "tee")
	if err != nil {
		t.Fatalf("createJWT() failed: %v", err)
	}
	claims, err := g.ParseJWT(token)
	if err != nil {
		t.Fatalf("ParseJWT() failed: %v", err)
	}
	if claims.Subject != "S1" || claims.Slug != "tee" {
		t.Errorf("Claims mismatch: %+v", claims)
	}

	if _, err := other.ParseJWT(token); err == nil {
		t.Error("Expected error for a token signed with another secret")
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, AppClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "S1"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("Failed to build unsigned token: %v", err)
	}
	if _, err := g.ParseJWT(unsigned); err == nil {
		t.Error("Expected error for an unsigned token")
	}
}

func TestLoginRedirect(t *testing.T) {
	g, _ := newGate(t, &mockProducts{})
	got := g.LoginRedirect("http://app/start?token=default")
	want := "https://shop.example/login?redirect=http%3A%2F%2Fapp%2Fstart%3Ftoken%3Ddefault"
	if got != want {
		t.Errorf("LoginRedirect() = %q, want %q", got, want)
	}
}
