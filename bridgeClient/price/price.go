// Package price reads USD quotes from the CoinGecko simple-price endpoint.
// Quotes are for display only and never feed into an encoded amount.
package price

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	bridgeerrors "github.com/tipjar/crossbridge/bridgeClient/errors"
)

const priceChain = "coingecko"

// DefaultCoinIDs are the assets the bridge UI shows a value for.
var DefaultCoinIDs = []string{"ethereum", "solana", "usd-coin"}

type Options struct {
	URL               string
	CoinIDs           []string
	CacheTTL          time.Duration
	RequestsPerMinute int
	HTTPTimeout       time.Duration
}

// Quotes maps a CoinGecko coin id to its USD price.
type Quotes struct {
	USD       map[string]float64 `json:"usd"`
	FetchedAt time.Time          `json:"fetched_at"`
	Stale     bool               `json:"stale"`
}

// Service caches one quote set and refreshes it when older than the TTL.
type Service struct {
	url     string
	ids     []string
	ttl     time.Duration
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu     sync.Mutex
	cached *Quotes
}

func NewService(opts Options, logger zerolog.Logger) *Service {
	if len(opts.CoinIDs) == 0 {
		opts.CoinIDs = DefaultCoinIDs
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 10
	}
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}

	return &Service{
		url:     opts.URL,
		ids:     opts.CoinIDs,
		ttl:     opts.CacheTTL,
		client:  &http.Client{Timeout: opts.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		logger:  logger.With().Str("component", "price_service").Logger(),
	}
}

// Quotes returns cached quotes when fresh, otherwise fetches new ones. When
// the fetch fails and an older set exists it is returned marked stale.
func (s *Service) Quotes(ctx context.Context) (Quotes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.cached.FetchedAt) < s.ttl {
		return *s.cached, nil
	}

	quotes, err := s.fetch(ctx)
	if err != nil {
		if s.cached != nil {
			s.logger.Warn().Err(err).Time("fetched_at", s.cached.FetchedAt).Msg("serving stale prices")
			stale := *s.cached
			stale.Stale = true
			return stale, nil
		}
		return Quotes{}, err
	}

	s.cached = &quotes
	return quotes, nil
}

// USDValue converts a human-readable amount of coinID into USD.
func (s *Service) USDValue(ctx context.Context, coinID string, amount float64) (float64, error) {
	quotes, err := s.Quotes(ctx)
	if err != nil {
		return 0, err
	}
	price, ok := quotes.USD[coinID]
	if !ok {
		return 0, bridgeerrors.NewValidationError(priceChain, fmt.Sprintf("no price for %q", coinID))
	}
	return amount * price, nil
}

func (s *Service) fetch(ctx context.Context) (Quotes, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Quotes{}, bridgeerrors.NewNetworkError(priceChain, "price request rate limited", err)
	}

	query := url.Values{}
	query.Set("ids", strings.Join(s.ids, ","))
	query.Set("vs_currencies", "usd")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"?"+query.Encode(), nil)
	if err != nil {
		return Quotes{}, bridgeerrors.NewConfigError(priceChain, fmt.Sprintf("invalid price url: %v", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Quotes{}, bridgeerrors.NewNetworkError(priceChain, "failed to fetch prices", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Quotes{}, bridgeerrors.NewNetworkError(priceChain, "failed to read price response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Quotes{}, bridgeerrors.NewNetworkError(priceChain, fmt.Sprintf("price endpoint returned %s", resp.Status), nil)
	}
	if !gjson.ValidBytes(body) {
		return Quotes{}, bridgeerrors.NewProtocolError(priceChain, "price response is not valid JSON", nil)
	}

	quotes := Quotes{USD: make(map[string]float64, len(s.ids)), FetchedAt: time.Now()}
	for _, id := range s.ids {
		value := gjson.GetBytes(body, gjson.Escape(id)+".usd")
		if !value.Exists() {
			s.logger.Debug().Str("coin_id", id).Msg("no usd price in response")
			continue
		}
		quotes.USD[id] = value.Float()
	}
	return quotes, nil
}
