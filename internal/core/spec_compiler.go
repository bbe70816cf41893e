package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/jsonc"

	"generic-exporter/internal/types"
)

const (
	fieldPackageName  = "package_name"
	fieldExporterPort = "exporter_port"
	minPort           = 1
	maxPort           = 65535
)

// DesiredSpecCompiler validates raw operator input and turns it into a
// DesiredSpec. It has no side effects.
type DesiredSpecCompiler struct {
	RequirePackage bool
}

func NewDesiredSpecCompiler(requirePackage bool) DesiredSpecCompiler {
	return DesiredSpecCompiler{RequirePackage: requirePackage}
}

// RequiredFields lists the fields that must be present for a spec to apply.
func (c DesiredSpecCompiler) RequiredFields() []string {
	if c.RequirePackage {
		return []string{fieldPackageName, fieldExporterPort}
	}
	return []string{fieldExporterPort}
}

// Compile reports every malformed field at once, then every missing
// required field at once.
func (c DesiredSpecCompiler) Compile(ctx context.Context, input types.DesiredSpecInput) (types.DesiredSpec, error) {
	spec := types.DesiredSpec{
		Classic:      input.Classic,
		ConfigSecret: strings.TrimSpace(input.ConfigSecret),
		MetricsPath:  types.DefaultMetricsPath,
	}
	var problems []string

	if input.PackageName != nil {
		name := strings.TrimSpace(*input.PackageName)
		if name == "" {
			problems = append(problems, "package_name must be a non-empty string")
		} else if strings.Contains(name, RegistrationSeparator) {
			problems = append(problems, fmt.Sprintf("package_name must not contain %q", RegistrationSeparator))
		}
		spec.PackageName = name
	}
	if input.ExporterPort != nil {
		port := *input.ExporterPort
		if port < minPort || port > maxPort {
			problems = append(problems, fmt.Sprintf("exporter_port must be between %d and %d", minPort, maxPort))
		}
		spec.ExporterPort = port
	}
	if input.Channel != nil {
		channel := strings.TrimSpace(*input.Channel)
		if channel == "" {
			problems = append(problems, "channel must be a non-empty string")
		}
		spec.Source.Channel = channel
	}
	if input.Revision != nil {
		if *input.Revision <= 0 {
			problems = append(problems, "revision must be a positive integer")
		}
		spec.Source.Revision = *input.Revision
	}
	if input.Config != nil {
		config, err := ParseConfigObject(*input.Config)
		if err != nil {
			problems = append(problems, "config "+err.Error())
		}
		spec.Config = config
	}
	if input.Plugs != nil {
		plugs := splitPlugs(*input.Plugs)
		if len(plugs) == 0 {
			problems = append(problems, "plugs must contain at least one valid plug name")
		}
		spec.Plugs = plugs
	}
	if input.MetricsPath != nil {
		spec.MetricsPath = strings.TrimLeft(strings.TrimSpace(*input.MetricsPath), "/")
	}
	if input.Channel != nil && input.Revision != nil {
		problems = append(problems, "channel and revision cannot both be set")
	}
	if len(problems) > 0 {
		return types.DesiredSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid configuration: " + strings.Join(problems, ", "))
	}
	if input.Channel == nil && input.Revision == nil {
		spec.Source.Channel = types.DefaultChannel
	}

	if missing := c.missingFields(input); len(missing) > 0 {
		return types.DesiredSpec{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("missing required configuration fields: " + strings.Join(missing, ", "))
	}
	log.Ctx(ctx).Debug().Str("package", spec.PackageName).Msg("desired spec compiled")
	return spec, nil
}

func (c DesiredSpecCompiler) missingFields(input types.DesiredSpecInput) []string {
	present := map[string]bool{
		fieldPackageName:  input.PackageName != nil,
		fieldExporterPort: input.ExporterPort != nil,
	}
	var missing []string
	for _, field := range c.RequiredFields() {
		if !present[field] {
			missing = append(missing, field)
		}
	}
	return missing
}

// ParseConfigObject decodes a JSON document, with comments and trailing
// commas allowed, that must be an object.
func ParseConfigObject(value string) (map[string]any, error) {
	var parsed any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(value)), &parsed); err != nil {
		return nil, fmt.Errorf("must be valid JSON")
	}
	config, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("JSON must decode to an object")
	}
	return config, nil
}

func splitPlugs(value string) []string {
	var plugs []string
	for _, plug := range strings.Split(value, ",") {
		plug = strings.TrimSpace(plug)
		if plug == "" {
			continue
		}
		plugs = append(plugs, plug)
	}
	return plugs
}
