package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
)

const maxSuggestLimit = 50

type Suggester interface {
	Suggest(ctx context.Context, seeds []string, limit int) ([]catalog.Product, error)
}

// BreakerConfig trips the suggestion breaker after Failures consecutive
// errors and keeps it open for Timeout.
type BreakerConfig struct {
	Failures uint32
	Timeout  time.Duration
}

type RecommendationHandler struct {
	suggester    Suggester
	breaker      *gobreaker.CircuitBreaker[[]catalog.Product]
	defaultLimit int
	logger       zerolog.Logger
}

func NewRecommendationHandler(s Suggester, defaultLimit int, bc BreakerConfig, logger zerolog.Logger) *RecommendationHandler {
	logger = logger.With().Str("component", "recommendations").Logger()
	settings := gobreaker.Settings{
		Name:        "suggest",
		MaxRequests: 1,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	}
	return &RecommendationHandler{
		suggester:    s,
		breaker:      gobreaker.NewCircuitBreaker[[]catalog.Product](settings),
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

type suggestionsResponse struct {
	Products []catalog.Product `json:"products"`
}

// ProductRecommendations suggests products bought together with one product.
func (h *RecommendationHandler) ProductRecommendations(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	h.suggest(w, r, []string{chi.URLParam(r, "productId")}, limit)
}

// Recommendations suggests products for a set of products, e.g. a cart.
func (h *RecommendationHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	var seeds []string
	for _, id := range strings.Split(r.URL.Query().Get("productIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			seeds = append(seeds, id)
		}
	}
	if len(seeds) == 0 {
		writeError(w, http.StatusBadRequest, "missing productIds")
		return
	}

	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	h.suggest(w, r, seeds, limit)
}

// suggest answers with an empty list when the score store is failing;
// suggestions are never worth failing a page for.
func (h *RecommendationHandler) suggest(w http.ResponseWriter, r *http.Request, seeds []string, limit int) {
	products, err := h.breaker.Execute(func() ([]catalog.Product, error) {
		return h.suggester.Suggest(r.Context(), seeds, limit)
	})
	if err != nil {
		metrics.SuggestFailures.Inc()
		h.logger.Error().Err(err).Strs("seeds", seeds).Msg("suggest")
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Products: products})
}

func (h *RecommendationHandler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxSuggestLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxSuggestLimit))
		return 0, false
	}
	return n, true
}
