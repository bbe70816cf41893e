package adapters

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"generic-exporter/internal/ports"
	"generic-exporter/internal/shared"
	"generic-exporter/internal/types"
)

const defaultSnapBinary = "snap"

// SnapCLIAdapter drives snapd through the snap command line tool.
type SnapCLIAdapter struct {
	Binary string
	Runner CommandRunner
}

func NewSnapCLIAdapter(binary string, runner CommandRunner) SnapCLIAdapter {
	if strings.TrimSpace(binary) == "" {
		binary = defaultSnapBinary
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return SnapCLIAdapter{Binary: binary, Runner: runner}
}

// Install installs a pinned revision and holds it so snapd does not
// refresh it behind the reconciler's back.
func (a SnapCLIAdapter) Install(ctx context.Context, name string, revision int, classic bool) error {
	args := []string{"install", name, "--revision=" + strconv.Itoa(revision)}
	if classic {
		args = append(args, "--classic")
	}
	if _, err := a.run(ctx, "install", args...); err != nil {
		return err
	}
	if _, err := a.run(ctx, "refresh", "refresh", "--hold", name); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("package", name).Int("revision", revision).Msg("installed snap")
	return nil
}

func (a SnapCLIAdapter) Remove(ctx context.Context, name string) error {
	stdout, stderr, _, err := a.Runner.Run(ctx, a.Binary, "remove", name)
	combined := string(stdout) + string(stderr)
	if strings.Contains(combined, "is not installed") {
		log.Ctx(ctx).Debug().Str("package", name).Msg("snap already absent")
		return nil
	}
	if err != nil {
		return snapCommandError("remove", stderr, err)
	}
	log.Ctx(ctx).Info().Str("package", name).Msg("removed snap")
	return nil
}

// Ensure installs the package when absent and otherwise refreshes it to
// the requested revision and confinement.
func (a SnapCLIAdapter) Ensure(ctx context.Context, name string, revision int, classic bool) error {
	installed, err := a.installed(ctx, name)
	if err != nil {
		return err
	}
	if !installed {
		return a.Install(ctx, name, revision, classic)
	}
	args := []string{"refresh", name, "--revision=" + strconv.Itoa(revision)}
	if classic {
		args = append(args, "--classic")
	}
	if _, err := a.run(ctx, "refresh", args...); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("package", name).Int("revision", revision).Msg("configured snap revision")
	return nil
}

// Set applies the configuration with typed values. Top-level keys are
// passed as JSON documents so nested maps keep their structure.
func (a SnapCLIAdapter) Set(ctx context.Context, name string, config map[string]any) error {
	if len(config) == 0 {
		return nil
	}
	keys := make([]string, 0, len(config))
	for key := range config {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := []string{"set", "-t", name}
	for _, key := range keys {
		value, err := json.Marshal(config[key])
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to encode config key " + key).
				WithCause(err)
		}
		args = append(args, key+"="+string(value))
	}
	_, err := a.run(ctx, "set", args...)
	return err
}

func (a SnapCLIAdapter) Unset(ctx context.Context, name string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	args := append([]string{"unset", name}, keys...)
	_, err := a.run(ctx, "unset", args...)
	return err
}

func (a SnapCLIAdapter) Get(ctx context.Context, name string) (map[string]any, error) {
	stdout, stderr, _, err := a.Runner.Run(ctx, a.Binary, "get", "-d", name)
	if err != nil {
		if strings.Contains(string(stderr), "has no configuration") {
			return map[string]any{}, nil
		}
		return nil, snapCommandError("get", stderr, err)
	}
	config := map[string]any{}
	if len(bytes.TrimSpace(stdout)) == 0 {
		return config, nil
	}
	if err := json.Unmarshal(stdout, &config); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to decode snap config").
			WithCause(err)
	}
	return config, nil
}

func (a SnapCLIAdapter) Connect(ctx context.Context, name string, plugs []string) error {
	for _, plug := range plugs {
		target := name + ":" + plug
		if _, err := a.run(ctx, "connect", "connect", target); err != nil {
			return err
		}
		log.Ctx(ctx).Info().Str("plug", target).Msg("connected plug")
	}
	return nil
}

func (a SnapCLIAdapter) Start(ctx context.Context, name string, enable bool) error {
	args := []string{"start"}
	if enable {
		args = append(args, "--enable")
	}
	_, err := a.run(ctx, "start", append(args, name)...)
	return err
}

func (a SnapCLIAdapter) Stop(ctx context.Context, name string, disable bool) error {
	args := []string{"stop"}
	if disable {
		args = append(args, "--disable")
	}
	_, err := a.run(ctx, "stop", append(args, name)...)
	return err
}

func (a SnapCLIAdapter) Services(ctx context.Context, name string) (map[string]types.ServiceStatus, error) {
	stdout, err := a.run(ctx, "services", "services", name)
	if err != nil {
		return nil, err
	}
	return parseSnapServices(stdout), nil
}

func (a SnapCLIAdapter) Version(ctx context.Context, name string) (string, error) {
	row, found, err := a.listRow(ctx, name)
	if err != nil {
		return "", err
	}
	if !found || len(row) < 2 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("snap " + name + " is not installed")
	}
	return row[1], nil
}

func (a SnapCLIAdapter) installed(ctx context.Context, name string) (bool, error) {
	_, found, err := a.listRow(ctx, name)
	return found, err
}

// listRow returns the `snap list` columns for the package.
func (a SnapCLIAdapter) listRow(ctx context.Context, name string) ([]string, bool, error) {
	stdout, stderr, _, err := a.Runner.Run(ctx, a.Binary, "list", name)
	if err != nil {
		if strings.Contains(string(stderr), "no matching snaps installed") {
			return nil, false, nil
		}
		return nil, false, snapCommandError("list", stderr, err)
	}
	for _, fields := range tableRows(stdout) {
		if fields[0] == name {
			return fields, true, nil
		}
	}
	return nil, false, nil
}

func (a SnapCLIAdapter) run(ctx context.Context, op string, args ...string) ([]byte, error) {
	log.Ctx(ctx).Debug().Str("binary", a.Binary).Strs("args", args).Msg("running snap command")
	stdout, stderr, _, err := a.Runner.Run(ctx, a.Binary, args...)
	if err != nil {
		return nil, snapCommandError(op, stderr, err)
	}
	return stdout, nil
}

func snapCommandError(op string, stderr []byte, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("snap %s failed", op)).
		WithCause(shared.CommandError(stderr, err))
}

// parseSnapServices reads the `snap services` table:
//
//	Service               Startup  Current  Notes
//	node-exporter.daemon  enabled  active   -
func parseSnapServices(output []byte) map[string]types.ServiceStatus {
	services := map[string]types.ServiceStatus{}
	for _, fields := range tableRows(output) {
		if len(fields) < 3 {
			continue
		}
		services[fields[0]] = types.ServiceStatus{
			Name:    fields[0],
			Enabled: fields[1] == "enabled",
			Active:  fields[2] == "active",
		}
	}
	return services
}

// tableRows splits snap's column output into fields, dropping the header.
func tableRows(output []byte) [][]string {
	var rows [][]string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	header := true
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, fields)
	}
	return rows
}

var _ ports.PackageManagerPort = SnapCLIAdapter{}
