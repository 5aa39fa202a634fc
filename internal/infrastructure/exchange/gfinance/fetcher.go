package gfinance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"goldroom/internal/application/port"
)

var (
	ErrNoPrice = errors.New("usd/idr price not found in page")

	pricePattern = regexp.MustCompile(`class="YMlKec fxKbKc"[^>]*>([^<]+)<`)
)

const maxBody = 4 << 20

// Fetcher scrapes the USD/IDR quote page.
type Fetcher struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) Name() string { return "gfinance" }

// Fetch performs one request. There is no retry; the caller skips the cycle.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Cookie", "CONSENT=YES+cb.20231208-04-p0.en+FX+410")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("usd/idr fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("usd/idr read: %w", err)
	}
	return ExtractPrice(body)
}

// ExtractPrice returns the trimmed quote text from page HTML.
func ExtractPrice(page []byte) (string, error) {
	m := pricePattern.FindSubmatch(page)
	if m == nil {
		return "", ErrNoPrice
	}
	price := strings.TrimSpace(string(m[1]))
	if price == "" {
		return "", ErrNoPrice
	}
	return price, nil
}

var _ port.PullFeed = (*Fetcher)(nil)
