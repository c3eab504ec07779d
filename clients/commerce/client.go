// Package commerce is the client for the storefront API: garment lookup and
// add-to-cart, both authorized with the shopper's bearer token.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var (
	// ErrCartRejected is returned when the storefront answers with status
	// false.
	ErrCartRejected = errors.New("cart rejected")
	// ErrProductNotFound is returned when a slug has no product.
	ErrProductNotFound = errors.New("product not found")
)

type (
	// Product holds the garment base images for each side.
	Product struct {
		Front string `json:"front"`
		Back  string `json:"back"`
	}

	// CartItem is the add-to-cart request body.
	CartItem struct {
		ProductID       string  `json:"product_id"`
		ProdVariationID string  `json:"prod_variation_id"`
		VariationID     string  `json:"variation_id"`
		Quantity        int     `json:"quantity"`
		Price           float64 `json:"price"`
		Color           string  `json:"color"`
		Size            string  `json:"size"`
		FrontImage      string  `json:"front_image"`
		BackImage       string  `json:"back_image"`
	}

	// CartResult is the storefront's answer to add-to-cart.
	CartResult struct {
		Status  bool   `json:"status"`
		Message string `json:"message,omitempty"`
	}

	slugResponse struct {
		ProductDetails *struct {
			PrimaryImg   string `json:"primary_img"`
			SecondaryImg string `json:"secondary_img"`
		} `json:"product_details"`
	}
)

// Client calls the storefront API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// authorized returns an HTTP client that attaches token as a bearer
// credential.
func (c *Client) authorized(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// Product looks up the garment images for slug.
func (c *Client) Product(ctx context.Context, token, slug string) (*Product, error) {
	u := c.baseURL + "/api/v1/get_slug_data/" + url.PathEscape(slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.authorized(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", slug, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, slug)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("get product %s: status %d", slug, resp.StatusCode)
	}

	var body slugResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", slug, err)
	}
	if body.ProductDetails == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, slug)
	}
	return &Product{
		Front: body.ProductDetails.PrimaryImg,
		Back:  body.ProductDetails.SecondaryImg,
	}, nil
}

// AddToCart submits item. A status of false yields ErrCartRejected carrying
// the storefront's message.
func (c *Client) AddToCart(ctx context.Context, token string, item CartItem) (*CartResult, error) {
	body, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/add_to_cart", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.authorized(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	defer resp.Body.Close()

	var result CartResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("add to cart: status %d: %w", resp.StatusCode, err)
	}
	if !result.Status {
		logrus.WithFields(logrus.Fields{
			"product_id": item.ProductID,
			"status":     resp.StatusCode,
			"message":    result.Message,
		}).Warn("Cart rejected")
		return &result, fmt.Errorf("%w: %s", ErrCartRejected, result.Message)
	}
	return &result, nil
}
