package gateway

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"

	"github.com/cuongbtq/report-service/internal/domain"
)

const (
	// DefaultURL is the central bank's daily exchange rate bulletin.
	DefaultURL = "https://www.tcmb.gov.tr/kurlar/today.xml"

	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 << 20
)

// TransientFetchError marks a fetch failure that may succeed when retried.
type TransientFetchError struct {
	StatusCode int
	Err        error
}

func (e *TransientFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rate feed unavailable: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("rate feed unavailable: %v", e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err carries a TransientFetchError.
func IsTransient(err error) bool {
	var transient *TransientFetchError
	return errors.As(err, &transient)
}

// Config holds central bank client settings
type Config struct {
	URL       string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
}

// CentralBankClient fetches the daily rate bulletin.
type CentralBankClient struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewCentralBankClient creates a client. httpClient may be nil.
func NewCentralBankClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *CentralBankClient {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &CentralBankClient{
		url:        url,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

type bulletin struct {
	XMLName    xml.Name         `xml:"Tarih_Date"`
	Date       string           `xml:"Date,attr"`
	Currencies []bulletinRecord `xml:"Currency"`
}

type bulletinRecord struct {
	CurrencyCode string `xml:"CurrencyCode,attr"`
	Unit         string `xml:"Unit"`
	Name         string `xml:"Isim"`
	ForexBuying  string `xml:"ForexBuying"`
	ForexSelling string `xml:"ForexSelling"`
}

// FetchTodayRates downloads and parses the current bulletin.
func (c *CentralBankClient) FetchTodayRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate feed request: %w", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Rate feed request failed",
			slog.String("url", c.url),
			slog.Any("error", err),
		)
		return nil, &TransientFetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		c.logger.Warn("Rate feed returned non-success status",
			slog.String("url", c.url),
			slog.Int("status", resp.StatusCode),
		)
		return nil, &TransientFetchError{StatusCode: resp.StatusCode}
	}

	rates, err := decodeBulletin(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	c.logger.Info("Fetched exchange rates",
		slog.Int("count", len(rates)),
		slog.Duration("latency", time.Since(start)),
	)

	return rates, nil
}

func decodeBulletin(r io.Reader) ([]domain.ExchangeRate, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var doc bulletin
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode rate bulletin: %w", err)
	}

	rates := make([]domain.ExchangeRate, 0, len(doc.Currencies))
	for _, rec := range doc.Currencies {
		rates = append(rates, domain.ExchangeRate{
			CurrencyCode: strings.TrimSpace(rec.CurrencyCode),
			Unit:         parseUnit(rec.Unit),
			Name:         strings.TrimSpace(rec.Name),
			BuyingRate:   ParseRate(rec.ForexBuying),
			SellingRate:  ParseRate(rec.ForexSelling),
		})
	}

	return rates, nil
}

// parseUnit keeps any integer the feed sends, falling back to 1 otherwise.
func parseUnit(raw string) int {
	unit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	return unit
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "":
		return input, nil
	case "iso-8859-9", "iso8859-9", "latin5":
		return charmap.ISO8859_9.NewDecoder().Reader(input), nil
	case "windows-1254", "cp1254":
		return charmap.Windows1254.NewDecoder().Reader(input), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}
