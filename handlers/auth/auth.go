package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Pabi691/custom-clothology/clients/commerce"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/panels"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// CookieName is the cookie carrying the session JWT.
const CookieName = "session"

const tokenTTL = 24 * time.Hour

// AppClaims represents the custom claims for the session JWT. The subject is
// the session id.
type AppClaims struct {
	jwt.RegisteredClaims
	Slug string `json:"slug,omitempty"`
}

// ProductFetcher looks up garment images for a product slug.
type ProductFetcher interface {
	Product(ctx context.Context, token, slug string) (*commerce.Product, error)
}

// Gate turns a storefront token into an editing session.
type Gate struct {
	secret   []byte
	loginURL string
	sentinel string
	registry *session.Registry
	products ProductFetcher
}

// NewGate creates a gate. An empty secret is replaced by a random one, so
// session tokens do not survive a restart.
func NewGate(secret, loginURL, sentinel string, registry *session.Registry, products ProductFetcher) *Gate {
	key := []byte(secret)
	if len(key) == 0 {
		logrus.Warn("JWT_SECRET is not set. Using a random secret for this process.")
		key = make([]byte, 32)
		rand.Read(key)
	}
	return &Gate{
		secret:   key,
		loginURL: loginURL,
		sentinel: sentinel,
		registry: registry,
		products: products,
	}
}

// LoginURL is where shoppers without a valid session are sent.
func (g *Gate) LoginURL() string {
	return g.loginURL
}

// LoginRedirect returns the login URL carrying back as the redirect target.
func (g *Gate) LoginRedirect(back string) string {
	u, err := url.Parse(g.loginURL)
	if err != nil {
		return g.loginURL
	}
	q := u.Query()
	q.Set("redirect", back)
	u.RawQuery = q.Encode()
	return u.String()
}

// HandleStart opens a session:
//
//	GET /start?token=&slug=&productId=&price=&selectedColor=&selectedSize=
//
// A missing token, or the sentinel token, redirects to the login page.
func (g *Gate) HandleStart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" || token == g.sentinel {
		logrus.WithField("remote", r.RemoteAddr).Info("No usable token, redirecting to login")
		http.Redirect(w, r, g.LoginRedirect(requestURL(r)), http.StatusTemporaryRedirect)
		return
	}

	if q.Get("slug") == "" || q.Get("productId") == "" || q.Get("price") == "" ||
		q.Get("selectedColor") == "" || q.Get("selectedSize") == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "slug, productId, price, selectedColor and selectedSize are required"})
		return
	}
	price, err := strconv.ParseFloat(q.Get("price"), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "price must be a non-negative number"})
		return
	}
	opts, err := panels.ValidateOptions(core.ProductOptions{
		Color: q.Get("selectedColor"),
		Size:  q.Get("selectedSize"),
	})
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}
	product := session.Product{
		Slug:      q.Get("slug"),
		ProductID: q.Get("productId"),
		Price:     price,
	}

	garment, err := g.products.Product(r.Context(), token, product.Slug)
	if err != nil {
		log := logrus.WithFields(logrus.Fields{"slug": product.Slug, "error": err})
		if errors.Is(err, commerce.ErrProductNotFound) {
			log.Warn("Product not found")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Product not found"})
			return
		}
		log.Error("Failed to fetch product")
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]string{"error": "Failed to fetch product"})
		return
	}

	s := g.registry.Create(token, product, *garment)
	snap := s.Store.SetOptions(opts)

	jwtToken, err := g.createJWT(s.ID, product.Slug)
	if err != nil {
		g.registry.Delete(s.ID)
		logrus.Errorf("failed to create JWT: %s", err.Error())
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Failed to create session"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    jwtToken,
		Path:     "/",
		Expires:  time.Now().Add(tokenTTL),
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	render.JSON(w, r, map[string]any{
		"token":   jwtToken,
		"session": s,
		"design":  snap,
	})
}

// End closes a session and clears the cookie.
func (g *Gate) End(w http.ResponseWriter, r *http.Request, sessionID string) {
	g.registry.Delete(sessionID)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	render.JSON(w, r, map[string]string{"login": g.loginURL})
}

func (g *Gate) createJWT(sessionID, slug string) (string, error) {
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Slug: slug,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

// ParseJWT validates a session JWT signed by this gate.
func (g *Gate) ParseJWT(tokenString string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
