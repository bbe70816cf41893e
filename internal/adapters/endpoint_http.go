package adapters

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"generic-exporter/internal/ports"
)

const defaultEndpointTimeout = 2 * time.Second

// EndpointHTTPAdapter treats an endpoint as reachable when a GET returns
// 200 within the timeout. Any other status or transport error is false.
type EndpointHTTPAdapter struct {
	Client *http.Client
}

func NewEndpointHTTPAdapter(timeout time.Duration) EndpointHTTPAdapter {
	if timeout <= 0 {
		timeout = defaultEndpointTimeout
	}
	return EndpointHTTPAdapter{Client: &http.Client{Timeout: timeout}}
}

func (a EndpointHTTPAdapter) Reachable(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("url", url).Msg("invalid metrics endpoint")
		return false
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		log.Ctx(ctx).Warn().Str("url", url).Msg("metrics endpoint is not reachable yet")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).Warn().Int("status", resp.StatusCode).Str("url", url).Msg("metrics endpoint returned unexpected status")
		return false
	}
	return true
}

var _ ports.EndpointPort = EndpointHTTPAdapter{}
