// Package capture serves rasterized sides: previews, printable-area downloads
// and the add-to-cart flow.
package capture

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Pabi691/custom-clothology/clients/commerce"
	"github.com/Pabi691/custom-clothology/compositor"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/middleware"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// Cart submits a cart item on behalf of the token holder.
type Cart interface {
	AddToCart(ctx context.Context, token string, item commerce.CartItem) (*commerce.CartResult, error)
}

func currentSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, map[string]string{"error": "Session not found"})
	}
	return s, ok
}

func renderCaptureError(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	if errors.Is(err, session.ErrCaptureBusy) {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]string{"error": "A capture is already in progress"})
		return
	}
	logrus.WithFields(logrus.Fields{"session_id": s.ID, "error": err}).Error("Capture failed")
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, map[string]string{"error": "Failed to capture design"})
}

func writePNG(w http.ResponseWriter, res *compositor.Capture) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PNG)))
	w.Header().Set("Cache-Control", "no-store")
	w.Write(res.PNG)
}

// HandleRender rasterizes the side in the URL. The body is a PNG, or the
// capture as JSON with format=json. region selects canvas or printable.
func HandleRender(c session.Capturer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		side, err := core.ParseSide(chi.URLParam(r, "side"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		region, err := compositor.ParseRegion(r.URL.Query().Get("region"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}

		res, err := s.Capture(r.Context(), c, side, compositor.Options{Region: region})
		if err != nil {
			renderCaptureError(w, r, s, err)
			return
		}
		if r.URL.Query().Get("format") == "json" {
			render.JSON(w, r, res)
			return
		}
		writePNG(w, res)
	}
}

// HandleDownload returns the printable area of a side as a PNG attachment.
func HandleDownload(c session.Capturer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		side, err := core.ParseSide(chi.URLParam(r, "side"))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}

		res, err := s.Capture(r.Context(), c, side, compositor.Options{Region: compositor.RegionPrintable})
		if err != nil {
			renderCaptureError(w, r, s, err)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tshirt-design-"+string(side)+".png"))
		writePNG(w, res)
	}
}

// HandleAddToCart captures both sides independently and submits them with
// the product options. A failed capture submits nothing.
func HandleAddToCart(c session.Capturer, cart Cart) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := currentSession(w, r)
		if !ok {
			return
		}
		log := logrus.WithField("session_id", s.ID)

		caps, err := s.CaptureSides(r.Context(), c, core.Sides, compositor.Options{Region: compositor.RegionCanvas})
		if err != nil {
			renderCaptureError(w, r, s, err)
			return
		}

		opts := s.Store.Snapshot().Options
		item := commerce.CartItem{
			ProductID:       s.Product.ProductID,
			ProdVariationID: opts.Size,
			VariationID:     opts.Size,
			Quantity:        1,
			Price:           s.Product.Price,
			Color:           opts.Color,
			Size:            opts.Size,
			FrontImage:      caps[0].DataURI,
			BackImage:       caps[1].DataURI,
		}

		res, err := cart.AddToCart(r.Context(), s.Token, item)
		if err != nil {
			if errors.Is(err, commerce.ErrCartRejected) && res != nil {
				log.WithField("message", res.Message).Warn("Cart rejected the item")
				render.Status(r, http.StatusUnprocessableEntity)
				render.JSON(w, r, res)
				return
			}
			log.WithError(err).Error("Failed to add to cart")
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, map[string]string{"error": "Failed to add to cart"})
			return
		}

		log.WithField("product_id", item.ProductID).Info("Item added to cart")
		render.JSON(w, r, res)
	}
}
