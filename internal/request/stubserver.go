package request

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/attaboy/monetize/internal/offers"
	"github.com/attaboy/monetize/internal/store"
	"github.com/go-chi/chi/v5"
)

// NewStubRouter builds the offer-server routes over a fixture directory and
// a purchase store. cmd/offerstub serves it standalone; integration tests
// mount it on an httptest server.
func NewStubRouter(fixtureDir string, purchases store.Store, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	serveResource := func(w http.ResponseWriter, req *http.Request, resourceKey string) {
		path := filepath.Join(fixtureDir, resourceKey+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("unknown offer resource requested", "resource", resourceKey)
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}

	r.Get("/offers/{resourceKey}", func(w http.ResponseWriter, req *http.Request) {
		serveResource(w, req, chi.URLParam(req, "resourceKey"))
	})

	r.Get("/multipleOffers", func(w http.ResponseWriter, req *http.Request) {
		serveResource(w, req, offers.ResourceMultipleOffers)
	})

	r.Post("/purchases", func(w http.ResponseWriter, req *http.Request) {
		var body purchaseRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.OfferID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offer_id is required"})
			return
		}
		if err := purchases.MarkPurchased(req.Context(), body.OfferID); err != nil {
			logger.Error("failed to record purchase", "offer_id", body.OfferID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "persistence failure"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"offer_id": body.OfferID})
	})

	r.Get("/purchases", func(w http.ResponseWriter, req *http.Request) {
		ids, err := purchases.ListPurchased(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "persistence failure"})
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"offer_ids": ids})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
