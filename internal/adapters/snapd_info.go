package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"generic-exporter/internal/ports"
	"generic-exporter/internal/shared"
	"generic-exporter/internal/types"
)

const (
	DefaultSnapdSocket  = "/run/snapd.socket"
	defaultSnapdTimeout = 30 * time.Second
	snapdBaseURL        = "http://localhost"
)

// SnapdInfoAdapter queries the snapd REST API for store metadata.
type SnapdInfoAdapter struct {
	BaseURL string
	Client  *http.Client
}

// NewSnapdInfoAdapter talks to snapd over its unix socket.
func NewSnapdInfoAdapter(socketPath string) SnapdInfoAdapter {
	if strings.TrimSpace(socketPath) == "" {
		socketPath = DefaultSnapdSocket
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}
	return SnapdInfoAdapter{
		BaseURL: snapdBaseURL,
		Client:  &http.Client{Transport: transport, Timeout: defaultSnapdTimeout},
	}
}

type snapdResponse struct {
	Type       string          `json:"type"`
	StatusCode int             `json:"status-code"`
	Result     json.RawMessage `json:"result"`
}

type snapdFindResult struct {
	Name        string                  `json:"name"`
	Confinement string                  `json:"confinement"`
	Channels    map[string]snapdChannel `json:"channels"`
}

type snapdChannel struct {
	Revision    string `json:"revision"`
	Confinement string `json:"confinement"`
}

// Info returns the package confinement and, when a channel is given, the
// revision currently published there. An unknown channel yields a zero
// revision rather than an error.
func (a SnapdInfoAdapter) Info(ctx context.Context, name string, channel string) (types.PackageInfo, error) {
	if strings.TrimSpace(name) == "" {
		return types.PackageInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is empty")
	}
	endpoint := strings.TrimRight(a.BaseURL, "/") + "/v2/find?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.PackageInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create snapd request").
			WithCause(err)
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return types.PackageInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("snapd request failed").
			WithCause(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.PackageInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read snapd response").
			WithCause(err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return types.PackageInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("snap %s not found in store", name))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.PackageInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("snapd find failed").
			WithCause(shared.HTTPStatusError(resp.StatusCode, endpoint))
	}

	var envelope snapdResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return types.PackageInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("invalid snapd response").
			WithCause(err)
	}
	var results []snapdFindResult
	if err := json.Unmarshal(envelope.Result, &results); err != nil {
		return types.PackageInfo{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("invalid snapd find result").
			WithCause(err)
	}
	for _, result := range results {
		if result.Name != name {
			continue
		}
		info := types.PackageInfo{Name: name, Confinement: parseConfinement(result.Confinement)}
		if channel != "" {
			info.Revision = channelRevision(result.Channels, channel)
		}
		log.Ctx(ctx).Debug().
			Str("package", name).
			Str("channel", channel).
			Int("revision", info.Revision).
			Str("confinement", string(info.Confinement)).
			Msg("resolved snap info")
		return info, nil
	}
	return types.PackageInfo{}, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("snap %s not found in store", name))
}

func parseConfinement(value string) types.Confinement {
	if types.Confinement(value) == types.ConfinementClassic {
		return types.ConfinementClassic
	}
	return types.ConfinementStrict
}

func channelRevision(channels map[string]snapdChannel, channel string) int {
	entry, ok := channels[channel]
	if !ok {
		return 0
	}
	revision, err := strconv.Atoi(strings.TrimSpace(entry.Revision))
	if err != nil || revision <= 0 {
		return 0
	}
	return revision
}

var _ ports.PackageInfoPort = SnapdInfoAdapter{}
