package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/fable/pkg/ports"
)

// MaxFetchSize bounds the body read by FetchURL.
const MaxFetchSize = 4 << 20

// Web adds real HTTP fetching to a provider that cannot fetch on its own.
type Web struct {
	ports.ServiceProvider
	Client *http.Client
}

// NewWeb wraps next. A nil client gets a 15 second timeout.
func NewWeb(next ports.ServiceProvider, client *http.Client) *Web {
	if next == nil {
		next = Null{}
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Web{ServiceProvider: next, Client: client}
}

// FetchURL performs a GET and returns the body.
func (w *Web) FetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchSize))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}
