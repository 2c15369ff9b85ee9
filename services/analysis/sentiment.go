package analysis

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const fearGreedURL = "https://api.alternative.me/fng/"

// Contrarian sentiment signals from the fear & greed index
const (
	SentimentStrongBuy  = "STRONG_BUY"
	SentimentBuy        = "BUY"
	SentimentNeutral    = "NEUTRAL"
	SentimentSell       = "SELL"
	SentimentStrongSell = "STRONG_SELL"
)

// SentimentResult is the market-wide fear & greed reading
type SentimentResult struct {
	Value          int    `json:"value"` // 0 = extreme fear, 100 = extreme greed
	Classification string `json:"classification"`
	Signal         string `json:"signal"` // contrarian
	Trend          string `json:"trend"`  // RISING, FALLING, FLAT vs previous day
}

// SentimentService fetches and caches the fear & greed index. The index
// updates daily, so readings are cached for an hour.
type SentimentService struct {
	http *resty.Client

	mu      sync.Mutex
	cached  *SentimentResult
	fetched time.Time
}

// NewSentimentService creates a sentiment service
func NewSentimentService() *SentimentService {
	return &SentimentService{
		http: resty.New().SetTimeout(10 * time.Second).SetRetryCount(2),
	}
}

// Current returns the latest fear & greed reading, contrarian-mapped to
// a trade signal
func (s *SentimentService) Current() (*SentimentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && time.Since(s.fetched) < time.Hour {
		return s.cached, nil
	}

	var payload struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	resp, err := s.http.R().
		SetQueryParam("limit", "2").
		SetResult(&payload).
		Get(fearGreedURL)
	if err != nil {
		return nil, fmt.Errorf("fear greed fetch: %w", err)
	}
	if resp.StatusCode() != 200 || len(payload.Data) == 0 {
		return nil, fmt.Errorf("fear greed fetch: status %d", resp.StatusCode())
	}

	value, _ := strconv.Atoi(payload.Data[0].Value)
	result := &SentimentResult{
		Value:          value,
		Classification: payload.Data[0].Classification,
		Signal:         contrarianSignal(value),
		Trend:          "FLAT",
	}
	if len(payload.Data) > 1 {
		prev, _ := strconv.Atoi(payload.Data[1].Value)
		if value > prev {
			result.Trend = "RISING"
		} else if value < prev {
			result.Trend = "FALLING"
		}
	}

	s.cached = result
	s.fetched = time.Now()
	return result, nil
}

// contrarianSignal maps extreme fear to buying and extreme greed to selling
func contrarianSignal(value int) string {
	switch {
	case value <= 20:
		return SentimentStrongBuy
	case value <= 35:
		return SentimentBuy
	case value >= 80:
		return SentimentStrongSell
	case value >= 65:
		return SentimentSell
	default:
		return SentimentNeutral
	}
}
