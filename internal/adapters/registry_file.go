package adapters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"generic-exporter/internal/core"
	"generic-exporter/internal/ports"
	"generic-exporter/internal/types"
)

// DefaultRegistryDir is shared by every instance on the host.
const DefaultRegistryDir = "/opt/singleton_snaps"

// RegistryFileAdapter keeps one empty-bodied file per (peer, package)
// pair. There is no lock: creation and removal of distinct files never
// conflict, and listing tolerates concurrent changes.
type RegistryFileAdapter struct {
	Dir string
}

func NewRegistryFileAdapter(dir string) RegistryFileAdapter {
	return RegistryFileAdapter{Dir: dir}
}

func (a RegistryFileAdapter) Register(ctx context.Context, peerID string, packageName string) error {
	path, err := a.recordPath(ctx, peerID, packageName)
	if err != nil {
		return err
	}
	if err := a.ensureDir(); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return registryIOError("failed to write registration", err)
	}
	if err := file.Close(); err != nil {
		return registryIOError("failed to write registration", err)
	}
	log.Ctx(ctx).Debug().Str("path", path).Msg("registered peer")
	return nil
}

func (a RegistryFileAdapter) Unregister(ctx context.Context, peerID string, packageName string) error {
	path, err := a.recordPath(ctx, peerID, packageName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("registration not found for package " + packageName)
		}
		return registryIOError("failed to delete registration", err)
	}
	log.Ctx(ctx).Debug().Str("path", path).Msg("unregistered peer")
	return nil
}

// ListPeers returns the normalized ids of every peer registered for the
// package, sorted. Files that do not parse as registrations are skipped.
func (a RegistryFileAdapter) ListPeers(ctx context.Context, packageName string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.validateDir(); err != nil {
		return nil, err
	}
	if err := validateRegistryPackage(packageName); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, registryIOError("failed to read registry directory", err)
	}
	peers := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		record, ok := core.ParseRegistrationFilename(entry.Name())
		if !ok {
			continue
		}
		if record.PackageName == packageName {
			peers = append(peers, record.PeerID)
		}
	}
	sort.Strings(peers)
	return peers, nil
}

func (a RegistryFileAdapter) IsUsedByOtherUnits(ctx context.Context, selfPeerID string, packageName string) (bool, error) {
	peers, err := a.ListPeers(ctx, packageName)
	if err != nil {
		return false, err
	}
	self := core.NormalizePeerID(selfPeerID)
	for _, peer := range peers {
		if peer != self {
			return true, nil
		}
	}
	return false, nil
}

func (a RegistryFileAdapter) recordPath(ctx context.Context, peerID string, packageName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := a.validateDir(); err != nil {
		return "", err
	}
	if strings.TrimSpace(peerID) == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("peer id is empty")
	}
	if err := validateRegistryPackage(packageName); err != nil {
		return "", err
	}
	name := core.RegistrationFilename(types.RegistrationRecord{PeerID: peerID, PackageName: packageName})
	return filepath.Join(a.Dir, name), nil
}

// validateRegistryPackage rejects package names that would not survive a
// round trip through the registration file name.
func validateRegistryPackage(packageName string) error {
	if strings.TrimSpace(packageName) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is empty")
	}
	if strings.Contains(packageName, string(os.PathSeparator)) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name contains path separator")
	}
	if strings.Contains(packageName, core.RegistrationSeparator) {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package name %s contains registration separator %q", packageName, core.RegistrationSeparator))
	}
	return nil
}

func (a RegistryFileAdapter) validateDir() error {
	if strings.TrimSpace(a.Dir) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("registry directory is empty")
	}
	return nil
}

// ensureDir creates the registry directory owned by the running user.
func (a RegistryFileAdapter) ensureDir() error {
	info, err := os.Stat(a.Dir)
	if err == nil {
		if !info.IsDir() {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("registry path is not a directory: " + a.Dir)
		}
		return nil
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return registryIOError("failed to create registry directory", err)
	}
	if err := os.Chown(a.Dir, os.Geteuid(), os.Getegid()); err != nil {
		return registryIOError("failed to set registry directory owner", err)
	}
	return nil
}

func registryIOError(msg string, err error) error {
	code := errbuilder.CodeInternal
	if errors.Is(err, fs.ErrPermission) {
		code = errbuilder.CodePermissionDenied
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg(msg).
		WithCause(err)
}

var _ ports.RegistryPort = RegistryFileAdapter{}
