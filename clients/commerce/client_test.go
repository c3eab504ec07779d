package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 0)
}

func TestProduct(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/get_slug_data/classic-tee" {
			t.Errorf("Path mismatch: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer shopper" {
			t.Errorf("Authorization mismatch: %q", got)
		}
		io.WriteString(w, `{"product_details":{"primary_img":"https://cdn/front.png","secondary_img":"https://cdn/back.png"}}`)
	})

	p, err := c.Product(context.Background(), "shopper", "classic-tee")
	if err != nil {
		t.Fatalf("Product() failed: %v", err)
	}
	if p.Front != "https://cdn/front.png" || p.Back != "https://cdn/back.png" {
		t.Errorf("Product mismatch: %+v", p)
	}
}

func TestProduct_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/get_slug_data/empty" {
			io.WriteString(w, `{}`)
			return
		}
		http.NotFound(w, r)
	})

	for _, slug := range []string{"missing", "empty"} {
		if _, err := c.Product(context.Background(), "shopper", slug); !errors.Is(err, ErrProductNotFound) {
			t.Errorf("%s: expected ErrProductNotFound, got %v", slug, err)
		}
	}
}

func TestAddToCart(t *testing.T) {
	var got CartItem
	var raw map[string]json.RawMessage
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/add_to_cart" {
			t.Errorf("Request mismatch: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer shopper" {
			t.Errorf("Authorization mismatch: %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		json.Unmarshal(body, &raw)
		io.WriteString(w, `{"status":true}`)
	})

	item := CartItem{
		ProductID:       "42",
		ProdVariationID: "M",
		VariationID:     "M",
		Quantity:        1,
		Price:           19.99,
		Color:           "black",
		Size:            "M",
		FrontImage:      "data:image/png;base64,Rg==",
		BackImage:       "data:image/png;base64,Qg==",
	}
	res, err := c.AddToCart(context.Background(), "shopper", item)
	if err != nil {
		t.Fatalf("AddToCart() failed: %v", err)
	}
	if !res.Status {
		t.Error("Expected status true")
	}
	if got != item {
		t.Errorf("Body mismatch: got %+v", got)
	}
	if string(raw["price"]) != "19.99" {
		t.Errorf("Price should be sent as a number, got %s", raw["price"])
	}
}

func TestAddToCart_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":false,"message":"out of stock"}`)
	})

	res, err := c.AddToCart(context.Background(), "shopper", CartItem{Quantity: 1})
	if !errors.Is(err, ErrCartRejected) {
		t.Fatalf("Expected ErrCartRejected, got %v", err)
	}
	if res == nil || res.Message != "out of stock" {
		t.Errorf("Result mismatch: %+v", res)
	}
}

func TestAddToCart_BadResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	})
	if _, err := c.AddToCart(context.Background(), "shopper", CartItem{}); err == nil {
		t.Error("Expected error for non-JSON response")
	}
}
