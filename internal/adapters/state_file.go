package adapters

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"generic-exporter/internal/ports"
	"generic-exporter/internal/types"
)

// StateFileAdapter persists AppliedState as YAML. A missing file is the
// zero state. Saves replace the file atomically.
type StateFileAdapter struct {
	Path string
}

func NewStateFileAdapter(path string) StateFileAdapter {
	return StateFileAdapter{Path: path}
}

func (a StateFileAdapter) Load() (types.AppliedState, error) {
	if err := a.validatePath(); err != nil {
		return types.AppliedState{}, err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.AppliedState{}, nil
		}
		return types.AppliedState{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read state file").
			WithCause(err)
	}
	var state types.AppliedState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return types.AppliedState{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid state file format").
			WithCause(err)
	}
	return state, nil
}

func (a StateFileAdapter) Save(state types.AppliedState) error {
	if err := a.validatePath(); err != nil {
		return err
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode state").
			WithCause(err)
	}
	dir := filepath.Dir(a.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create state directory").
			WithCause(err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(a.Path)+".*.tmp")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create state file").
			WithCause(err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write state file").
			WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write state file").
			WithCause(err)
	}
	if err := os.Rename(tmp.Name(), a.Path); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to replace state file").
			WithCause(err)
	}
	return nil
}

func (a StateFileAdapter) validatePath() error {
	if strings.TrimSpace(a.Path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("state file path is empty")
	}
	return nil
}

var _ ports.StateStorePort = StateFileAdapter{}
