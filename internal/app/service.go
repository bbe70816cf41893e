package app

import (
	"path/filepath"
	"strings"
	"time"

	"generic-exporter/internal/adapters"
	"generic-exporter/internal/core"
	"generic-exporter/internal/ports"
	"generic-exporter/internal/types"
)

const (
	DefaultAppName  = "generic-exporter"
	DefaultStateDir = "/var/lib/generic-exporter"
)

// ProbeSettings is the retry budget of one probe. A MaxDelay above Delay
// switches from a fixed to a doubling delay.
type ProbeSettings struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

// Settings describes the host an instance runs on.
type Settings struct {
	PeerID          string
	AppName         string
	RegistryDir     string
	StateFile       string
	SnapBinary      string
	SnapdSocket     string
	RulesParentDir  string
	AlertsSource    string
	SecretsDir      string
	SecretIdentity  string
	RequirePackage  bool
	MergePolicy     types.MergePolicy
	EndpointTimeout time.Duration
	ServiceProbe    ProbeSettings
	EndpointProbe   ProbeSettings
	SecretProbe     ProbeSettings
}

func DefaultSettings() Settings {
	return Settings{
		AppName:         DefaultAppName,
		RegistryDir:     adapters.DefaultRegistryDir,
		SnapdSocket:     adapters.DefaultSnapdSocket,
		RulesParentDir:  adapters.DefaultRulesParentDir,
		RequirePackage:  true,
		MergePolicy:     types.MergePolicyUnequal,
		EndpointTimeout: 2 * time.Second,
		ServiceProbe:    ProbeSettings{Attempts: 5, Delay: 2 * time.Second},
		EndpointProbe:   ProbeSettings{Attempts: 5, Delay: 2 * time.Second},
		SecretProbe:     ProbeSettings{Attempts: 3, Delay: 5 * time.Second},
	}
}

// StatePath is the applied state file, one per peer unless overridden.
func (s Settings) StatePath() string {
	if strings.TrimSpace(s.StateFile) != "" {
		return s.StateFile
	}
	return filepath.Join(DefaultStateDir, core.NormalizePeerID(s.PeerID)+".yaml")
}

type Service struct {
	SpecLoader  ports.DesiredSpecPort
	Packages    ports.PackageManagerPort
	PackageInfo ports.PackageInfoPort
	Registry    ports.RegistryPort
	State       ports.StateStorePort
	Secrets     ports.SecretSourcePort
	Endpoint    ports.EndpointPort
	Alerts      ports.AlertRulesPort
	Settings    Settings
}

func NewService(settings Settings) Service {
	service := Service{
		SpecLoader:  adapters.NewDesiredSpecFileAdapter(),
		Packages:    adapters.NewSnapCLIAdapter(settings.SnapBinary, adapters.ExecRunner{}),
		PackageInfo: adapters.NewSnapdInfoAdapter(settings.SnapdSocket),
		Registry:    adapters.NewRegistryFileAdapter(settings.RegistryDir),
		State:       adapters.NewStateFileAdapter(settings.StatePath()),
		Endpoint:    adapters.NewEndpointHTTPAdapter(settings.EndpointTimeout),
		Alerts:      adapters.NewAlertRulesDirAdapter(settings.RulesParentDir, settings.AppName, settings.PeerID),
		Settings:    settings,
	}
	if strings.TrimSpace(settings.SecretsDir) != "" {
		service.Secrets = adapters.NewAgeSecretAdapter(settings.SecretsDir, settings.SecretIdentity)
	}
	return service
}

func (s Service) reconciler() core.Reconciler {
	return core.Reconciler{
		PeerID:        s.Settings.PeerID,
		Compiler:      core.NewDesiredSpecCompiler(s.Settings.RequirePackage),
		MergePolicy:   s.Settings.MergePolicy,
		Packages:      s.Packages,
		PackageInfo:   s.PackageInfo,
		Registry:      s.Registry,
		State:         s.State,
		Secrets:       s.Secrets,
		Endpoint:      s.Endpoint,
		Alerts:        s.Alerts,
		AlertsSource:  s.Settings.AlertsSource,
		ServiceProbe:  newProbe("services", s.Settings.ServiceProbe),
		EndpointProbe: newProbe("endpoint", s.Settings.EndpointProbe),
		SecretProbe:   newProbe("secret", s.Settings.SecretProbe),
	}
}

func newProbe(name string, settings ProbeSettings) core.Probe {
	delay := core.FixedDelay(settings.Delay)
	if settings.MaxDelay > settings.Delay {
		delay = core.ExponentialDelay(settings.Delay, settings.MaxDelay)
	}
	return core.NewProbe(name, settings.Attempts, delay)
}
