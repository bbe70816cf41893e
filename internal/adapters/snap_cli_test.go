package adapters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"generic-exporter/internal/types"
)

type scriptedResult struct {
	stdout string
	stderr string
	err    error
}

// scriptedRunner answers commands by their joined argument line.
type scriptedRunner struct {
	results map[string]scriptedResult
	calls   []string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	line := name + " " + strings.Join(args, " ")
	r.calls = append(r.calls, line)
	result := r.results[line]
	code := int32(0)
	if result.err != nil {
		code = 1
	}
	return []byte(result.stdout), []byte(result.stderr), code, result.err
}

var errExit = errors.New("exit status 1")

func TestSnapCLIAdapterInstall(t *testing.T) {
	tests := []struct {
		name      string
		classic   bool
		wantCalls []string
	}{
		{
			name: "strict",
			wantCalls: []string{
				"snap install node-exporter --revision=42",
				"snap refresh --hold node-exporter",
			},
		},
		{
			name:    "classic",
			classic: true,
			wantCalls: []string{
				"snap install node-exporter --revision=42 --classic",
				"snap refresh --hold node-exporter",
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			runner := &scriptedRunner{}
			adapter := NewSnapCLIAdapter("", runner)

			require.NoError(t, adapter.Install(t.Context(), "node-exporter", 42, tt.classic))

			if diff := cmp.Diff(tt.wantCalls, runner.calls); diff != "" {
				t.Fatalf("unexpected commands (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSnapCLIAdapterRemoveAbsentSucceeds(t *testing.T) {
	runner := &scriptedRunner{results: map[string]scriptedResult{
		"snap remove node-exporter": {stderr: `snap "node-exporter" is not installed`},
	}}
	adapter := NewSnapCLIAdapter("snap", runner)

	require.NoError(t, adapter.Remove(t.Context(), "node-exporter"))
}

func TestSnapCLIAdapterRemoveFailure(t *testing.T) {
	runner := &scriptedRunner{results: map[string]scriptedResult{
		"snap remove node-exporter": {stderr: "error: snap is busy", err: errExit},
	}}
	adapter := NewSnapCLIAdapter("snap", runner)

	err := adapter.Remove(t.Context(), "node-exporter")

	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "snap remove failed")
}

func TestSnapCLIAdapterEnsure(t *testing.T) {
	t.Run("installed refreshes", func(t *testing.T) {
		runner := &scriptedRunner{results: map[string]scriptedResult{
			"snap list node-exporter": {stdout: "Name           Version  Rev  Tracking       Publisher  Notes\nnode-exporter  1.8.2    42   latest/stable  canonical  held\n"},
		}}
		adapter := NewSnapCLIAdapter("snap", runner)

		require.NoError(t, adapter.Ensure(t.Context(), "node-exporter", 43, false))

		assert.Equal(t, "snap refresh node-exporter --revision=43", runner.calls[len(runner.calls)-1])
	})

	t.Run("absent installs", func(t *testing.T) {
		runner := &scriptedRunner{results: map[string]scriptedResult{
			"snap list node-exporter": {stderr: "error: no matching snaps installed", err: errExit},
		}}
		adapter := NewSnapCLIAdapter("snap", runner)

		require.NoError(t, adapter.Ensure(t.Context(), "node-exporter", 43, true))

		assert.Contains(t, runner.calls, "snap install node-exporter --revision=43 --classic")
	})
}

func TestSnapCLIAdapterSetAndUnset(t *testing.T) {
	runner := &scriptedRunner{}
	adapter := NewSnapCLIAdapter("snap", runner)
	ctx := t.Context()

	require.NoError(t, adapter.Set(ctx, "node-exporter", map[string]any{
		"web":   map[string]any{"listen-address": ":9100"},
		"debug": true,
	}))
	require.NoError(t, adapter.Unset(ctx, "node-exporter", []string{"other.sub", "legacy"}))
	require.NoError(t, adapter.Set(ctx, "node-exporter", nil))
	require.NoError(t, adapter.Unset(ctx, "node-exporter", nil))

	want := []string{
		`snap set -t node-exporter debug=true web={"listen-address":":9100"}`,
		"snap unset node-exporter other.sub legacy",
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("unexpected commands (-want +got):\n%s", diff)
	}
}

func TestSnapCLIAdapterGet(t *testing.T) {
	tests := []struct {
		name   string
		result scriptedResult
		want   map[string]any
	}{
		{
			name:   "document",
			result: scriptedResult{stdout: `{"web": {"listen-address": ":9100"}}`},
			want:   map[string]any{"web": map[string]any{"listen-address": ":9100"}},
		},
		{
			name:   "no configuration",
			result: scriptedResult{stderr: `error: snap "node-exporter" has no configuration`, err: errExit},
			want:   map[string]any{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			runner := &scriptedRunner{results: map[string]scriptedResult{"snap get -d node-exporter": tt.result}}
			adapter := NewSnapCLIAdapter("snap", runner)

			got, err := adapter.Get(t.Context(), "node-exporter")

			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected config (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSnapCLIAdapterConnectStopsAtFirstFailure(t *testing.T) {
	runner := &scriptedRunner{results: map[string]scriptedResult{
		"snap connect node-exporter:hardware-observe": {stderr: "error: no plug", err: errExit},
	}}
	adapter := NewSnapCLIAdapter("snap", runner)

	err := adapter.Connect(t.Context(), "node-exporter", []string{"network-observe", "hardware-observe", "system-observe"})

	require.Error(t, err)
	assert.Equal(t, []string{
		"snap connect node-exporter:network-observe",
		"snap connect node-exporter:hardware-observe",
	}, runner.calls)
}

func TestSnapCLIAdapterStartStop(t *testing.T) {
	runner := &scriptedRunner{}
	adapter := NewSnapCLIAdapter("snap", runner)

	require.NoError(t, adapter.Stop(t.Context(), "node-exporter", true))
	require.NoError(t, adapter.Start(t.Context(), "node-exporter", true))
	require.NoError(t, adapter.Start(t.Context(), "node-exporter", false))

	assert.Equal(t, []string{
		"snap stop --disable node-exporter",
		"snap start --enable node-exporter",
		"snap start node-exporter",
	}, runner.calls)
}

func TestSnapCLIAdapterServices(t *testing.T) {
	runner := &scriptedRunner{results: map[string]scriptedResult{
		"snap services node-exporter": {stdout: "Service                Startup   Current   Notes\n" +
			"node-exporter.daemon   enabled   active    -\n" +
			"node-exporter.textfile disabled  inactive  -\n"},
	}}
	adapter := NewSnapCLIAdapter("snap", runner)

	got, err := adapter.Services(t.Context(), "node-exporter")
	require.NoError(t, err)

	want := map[string]types.ServiceStatus{
		"node-exporter.daemon":   {Name: "node-exporter.daemon", Enabled: true, Active: true},
		"node-exporter.textfile": {Name: "node-exporter.textfile", Enabled: false, Active: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected services (-want +got):\n%s", diff)
	}
}

func TestSnapCLIAdapterVersion(t *testing.T) {
	runner := &scriptedRunner{results: map[string]scriptedResult{
		"snap list node-exporter": {stdout: "Name           Version  Rev  Tracking       Publisher  Notes\nnode-exporter  1.8.2    42   latest/stable  canonical  held\n"},
		"snap list missing":       {stderr: "error: no matching snaps installed", err: errExit},
	}}
	adapter := NewSnapCLIAdapter("snap", runner)

	version, err := adapter.Version(t.Context(), "node-exporter")
	require.NoError(t, err)
	assert.Equal(t, "1.8.2", version)

	_, err = adapter.Version(t.Context(), "missing")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
