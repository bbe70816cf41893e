package core

import (
	"context"
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"generic-exporter/internal/types"
)

func strPtr(value string) *string { return &value }
func intPtr(value int) *int       { return &value }

func TestCompilerRejectsMalformedFields(t *testing.T) {
	tests := []struct {
		name      string
		input     types.DesiredSpecInput
		badFields []string
	}{
		{
			name:      "empty package name",
			input:     types.DesiredSpecInput{PackageName: strPtr("  "), ExporterPort: intPtr(9090)},
			badFields: []string{"package_name"},
		},
		{
			name:      "package with registration separator",
			input:     types.DesiredSpecInput{PackageName: strPtr("my__exporter"), ExporterPort: intPtr(9090)},
			badFields: []string{`package_name must not contain "__"`},
		},
		{
			name:      "port too high",
			input:     types.DesiredSpecInput{PackageName: strPtr("test"), ExporterPort: intPtr(70000)},
			badFields: []string{"exporter_port"},
		},
		{
			name:      "negative port",
			input:     types.DesiredSpecInput{PackageName: strPtr("test"), ExporterPort: intPtr(-1)},
			badFields: []string{"exporter_port"},
		},
		{
			name:      "empty channel",
			input:     types.DesiredSpecInput{PackageName: strPtr("test"), ExporterPort: intPtr(9090), Channel: strPtr("")},
			badFields: []string{"channel"},
		},
		{
			name:      "config not json",
			input:     types.DesiredSpecInput{PackageName: strPtr("test"), ExporterPort: intPtr(8080), Config: strPtr("not-a-json")},
			badFields: []string{"config must be valid JSON"},
		},
		{
			name:      "config not an object",
			input:     types.DesiredSpecInput{PackageName: strPtr("test"), ExporterPort: intPtr(8080), Config: strPtr("123")},
			badFields: []string{"config JSON must decode to an object"},
		},
		{
			name:      "empty plugs",
			input:     types.DesiredSpecInput{PackageName: strPtr("test"), ExporterPort: intPtr(8080), Plugs: strPtr("")},
			badFields: []string{"plugs"},
		},
		{
			name:      "blank plugs",
			input:     types.DesiredSpecInput{PackageName: strPtr("test"), ExporterPort: intPtr(8080), Plugs: strPtr("   ,  , ")},
			badFields: []string{"plugs"},
		},
		{
			name: "channel and revision",
			input: types.DesiredSpecInput{
				PackageName:  strPtr("test"),
				ExporterPort: intPtr(8080),
				Channel:      strPtr("test"),
				Revision:     intPtr(1),
			},
			badFields: []string{"channel", "revision"},
		},
		{
			name:      "negative revision",
			input:     types.DesiredSpecInput{PackageName: strPtr("test"), ExporterPort: intPtr(8080), Revision: intPtr(-1)},
			badFields: []string{"revision"},
		},
		{
			name:      "several problems reported together",
			input:     types.DesiredSpecInput{PackageName: strPtr(""), ExporterPort: intPtr(0)},
			badFields: []string{"package_name", "exporter_port"},
		},
	}

	compiler := NewDesiredSpecCompiler(true)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.Compile(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
			assert.Contains(t, err.Error(), "invalid configuration")
			for _, field := range tt.badFields {
				assert.Contains(t, err.Error(), field)
			}
		})
	}
}

func TestCompilerListsEveryMissingField(t *testing.T) {
	compiler := NewDesiredSpecCompiler(true)

	_, err := compiler.Compile(context.Background(), types.DesiredSpecInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration fields: package_name, exporter_port")
}

func TestCompilerWithoutPackageRequirement(t *testing.T) {
	compiler := NewDesiredSpecCompiler(false)

	spec, err := compiler.Compile(context.Background(), types.DesiredSpecInput{ExporterPort: intPtr(9100)})
	require.NoError(t, err)
	assert.False(t, spec.ManagesPackage())

	_, err = compiler.Compile(context.Background(), types.DesiredSpecInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configuration fields: exporter_port")
	assert.NotContains(t, err.Error(), "package_name")
}

func TestCompilerNormalizesValidInput(t *testing.T) {
	compiler := NewDesiredSpecCompiler(true)
	input := types.DesiredSpecInput{
		PackageName:  strPtr(" node-exporter "),
		ExporterPort: intPtr(9100),
		Config: strPtr(`{
			// collectors to enable
			"collectors": {"systemd": true,},
		}`),
		Plugs:        strPtr("hardware-observe, network-observe ,"),
		MetricsPath:  strPtr(" /metrics/node "),
		ConfigSecret: " secret:abc ",
	}

	spec, err := compiler.Compile(context.Background(), input)
	require.NoError(t, err)

	want := types.DesiredSpec{
		PackageName:  "node-exporter",
		Source:       types.PackageSource{Channel: types.DefaultChannel},
		Config:       map[string]any{"collectors": map[string]any{"systemd": true}},
		ConfigSecret: "secret:abc",
		Plugs:        []string{"hardware-observe", "network-observe"},
		ExporterPort: 9100,
		MetricsPath:  "metrics/node",
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Fatalf("unexpected spec (-want +got):\n%s", diff)
	}
}

func TestCompilerKeepsExplicitRevision(t *testing.T) {
	compiler := NewDesiredSpecCompiler(true)

	spec, err := compiler.Compile(context.Background(), types.DesiredSpecInput{
		PackageName:  strPtr("node-exporter"),
		ExporterPort: intPtr(9100),
		Revision:     intPtr(42),
		Classic:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, types.PackageSource{Revision: 42}, spec.Source)
	assert.True(t, spec.Classic)
	assert.Equal(t, types.DefaultMetricsPath, spec.MetricsPath)
}
