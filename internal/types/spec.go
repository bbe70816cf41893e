package types

// DefaultChannel is used when neither a channel nor a revision is given.
const DefaultChannel = "latest/stable"

// DefaultMetricsPath is the exporter path when none is configured.
const DefaultMetricsPath = "metrics"

// DesiredSpecInput is the raw operator input as read from a spec file.
// Every field is optional; DesiredSpecCompiler turns it into a DesiredSpec.
type DesiredSpecInput struct {
	PackageName  *string `yaml:"package_name,omitempty" toml:"package_name,omitempty"`
	Channel      *string `yaml:"channel,omitempty" toml:"channel,omitempty"`
	Revision     *int    `yaml:"revision,omitempty" toml:"revision,omitempty"`
	Classic      bool    `yaml:"classic,omitempty" toml:"classic,omitempty"`
	Config       *string `yaml:"config,omitempty" toml:"config,omitempty"`
	ConfigSecret string  `yaml:"config_secret,omitempty" toml:"config_secret,omitempty"`
	Plugs        *string `yaml:"plugs,omitempty" toml:"plugs,omitempty"`
	ExporterPort *int    `yaml:"exporter_port,omitempty" toml:"exporter_port,omitempty"`
	MetricsPath  *string `yaml:"metrics_path,omitempty" toml:"metrics_path,omitempty"`
}

// PackageSource pins a package either to a channel or to a revision.
// Once resolved, Revision is always set; Channel records where it came from.
type PackageSource struct {
	Channel  string
	Revision int
}

// DesiredSpec is the validated target configuration for one invocation.
type DesiredSpec struct {
	PackageName  string
	Source       PackageSource
	Classic      bool
	Config       map[string]any
	ConfigSecret string
	Plugs        []string
	ExporterPort int
	MetricsPath  string
}

// ManagesPackage reports whether this instance manages a package at all.
func (s DesiredSpec) ManagesPackage() bool {
	return s.PackageName != ""
}

// AppliedState is the only durable fact an instance keeps between
// invocations. It is written exclusively by the reconciler, and only
// after the step it records has committed.
type AppliedState struct {
	InstalledPackageName string `yaml:"installed_package_name,omitempty"`
}

// PackageInfo is the store-side view of a package.
type PackageInfo struct {
	Name        string
	Revision    int
	Confinement Confinement
}

// ServiceStatus is the state of one service shipped by a package.
type ServiceStatus struct {
	Name    string
	Enabled bool
	Active  bool
}

// RegistrationRecord is a peer's declared dependency on a package.
// It exists only as a file in the registration directory.
type RegistrationRecord struct {
	PeerID      string
	PackageName string
}
