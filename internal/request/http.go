package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/attaboy/monetize/internal/domain"
	"github.com/attaboy/monetize/internal/offers"
)

// HTTPService talks to an offer backend:
//
//	GET  /offers/{resourceKey}
//	GET  /multipleOffers
//	POST /purchases
//
// Requests run on their own goroutine and the callback fires from there; the
// engine marshals completions onto its dispatch loop.
type HTTPService struct {
	baseURL string
	logger  *slog.Logger
	client  *http.Client
}

// NewHTTPService creates an HTTP-backed request service.
func NewHTTPService(baseURL string, logger *slog.Logger) *HTTPService {
	return &HTTPService{
		baseURL: baseURL,
		logger:  logger,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPService) GetOffers(ctx context.Context, resourceKey string, _ map[string]string, cb func([]offers.OfferDTO, error)) {
	go func() {
		var wrapper offers.OfferListDTO
		if err := s.getJSON(ctx, fmt.Sprintf("%s/offers/%s", s.baseURL, resourceKey), &wrapper); err != nil {
			cb(nil, err)
			return
		}
		cb(wrapper.Offers, nil)
	}()
}

func (s *HTTPService) GetMultipleOffers(ctx context.Context, _ map[string]string, cb func([]offers.MultipleOfferDTO, error)) {
	go func() {
		var wrapper offers.MultipleOfferListDTO
		if err := s.getJSON(ctx, s.baseURL+"/multipleOffers", &wrapper); err != nil {
			cb(nil, err)
			return
		}
		cb(wrapper.MultipleOffers, nil)
	}()
}

func (s *HTTPService) MarkOfferAsPurchased(ctx context.Context, offer *domain.Offer, cb func(bool)) {
	go func() {
		body, _ := json.Marshal(purchaseRequest{OfferID: offer.ID})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/purchases", bytes.NewReader(body))
		if err != nil {
			cb(false)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.Error("purchase request failed", "offer_id", offer.ID, "error", err)
			cb(false)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			s.logger.Error("purchase rejected by offer server", "offer_id", offer.ID, "status", resp.StatusCode)
			cb(false)
			return
		}
		cb(true)
	}()
}

func (s *HTTPService) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("offer server unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("offer server returned status %d for %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type purchaseRequest struct {
	OfferID string `json:"offer_id"`
}
