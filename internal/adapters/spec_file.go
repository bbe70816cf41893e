package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"generic-exporter/internal/ports"
	"generic-exporter/internal/types"
)

// DesiredSpecFileAdapter reads operator input from a YAML file, or a TOML
// file when the extension is .toml.
type DesiredSpecFileAdapter struct{}

func NewDesiredSpecFileAdapter() DesiredSpecFileAdapter {
	return DesiredSpecFileAdapter{}
}

func (a DesiredSpecFileAdapter) LoadDesiredSpec(path string) (types.DesiredSpecInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.DesiredSpecInput{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("spec file not found").
			WithCause(err)
	}
	var input types.DesiredSpecInput
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &input); err != nil {
			return types.DesiredSpecInput{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to parse spec toml").
				WithCause(err)
		}
		return input, nil
	}
	if err := yaml.Unmarshal(data, &input); err != nil {
		return types.DesiredSpecInput{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse spec yaml").
			WithCause(err)
	}
	return input, nil
}

var _ ports.DesiredSpecPort = DesiredSpecFileAdapter{}
