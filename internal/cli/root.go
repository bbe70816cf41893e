package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"generic-exporter/internal/app"
	"generic-exporter/internal/policies"
	"generic-exporter/internal/shared"
)

// version is set at build time via ldflags.
var version = "dev"

const envPrefix = "GENERIC_EXPORTER"

type RootConfig struct {
	ConfigFile string
	LogLevel   string
}

var newAppService = func(settings app.Settings) app.Service {
	return app.NewService(settings)
}

func Execute() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", errorMessage(err))
		os.Exit(exitCodeForError(err))
	}
}

func newRootCommand() *cobra.Command {
	cfg := RootConfig{}
	cmd := &cobra.Command{
		Use:           "generic-exporter",
		Short:         "Reconcile a confined exporter package shared between peers on one host",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initConfig(cfg.ConfigFile); err != nil {
				return err
			}
			setupLogging(viper.GetString("log_level"))
			return nil
		},
	}
	defaults := app.DefaultSettings()
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigFile, "config", "", "Config file path")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "Log level")
	flags.String("peer-id", "", "Identity of this instance, e.g. generic-exporter/0")
	flags.String("registry-dir", defaults.RegistryDir, "Shared peer registration directory")
	flags.String("state-file", "", "Applied state file (defaults to a per-peer file)")
	flags.String("snap-binary", "snap", "snap command used to manage packages")
	flags.String("snapd-socket", defaults.SnapdSocket, "snapd REST API socket")
	flags.String("rules-parent-dir", defaults.RulesParentDir, "Parent of the per-instance alert rules directory")
	flags.String("app-name", defaults.AppName, "Application name used for the alert rules directory")
	flags.String("alerts", "", "Alert rules file to install on configuration changes")
	flags.String("secrets-dir", "", "Directory of age-encrypted secrets")
	flags.String("secret-identity", "", "age identity file used to decrypt secrets")
	flags.Bool("require-package", defaults.RequirePackage, "Require package_name in the desired spec")
	flags.String("merge-policy", string(defaults.MergePolicy), "Secret overlay merge policy (unequal or strict)")
	flags.Int("service-probe-attempts", defaults.ServiceProbe.Attempts, "Service activity probe attempts")
	flags.Duration("service-probe-delay", defaults.ServiceProbe.Delay, "Delay between service probe attempts")
	flags.Int("endpoint-probe-attempts", defaults.EndpointProbe.Attempts, "Metrics endpoint probe attempts")
	flags.Duration("endpoint-probe-delay", defaults.EndpointProbe.Delay, "Delay between endpoint probe attempts")
	flags.Duration("endpoint-timeout", defaults.EndpointTimeout, "Timeout of one metrics endpoint request")
	flags.Int("secret-attempts", defaults.SecretProbe.Attempts, "Secret fetch attempts on access errors")
	flags.Duration("secret-delay", defaults.SecretProbe.Delay, "Delay between secret fetch attempts")
	flags.Duration("secret-max-delay", 0, "Cap of a doubling secret retry delay (fixed delay when unset)")
	for _, name := range settingFlags {
		_ = viper.BindPFlag(flagKey(name), flags.Lookup(name))
	}

	cmd.AddCommand(newReconcileCommand())
	cmd.AddCommand(newRemoveCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newPeersCommand())
	cmd.AddCommand(newDumpAlertsCommand())
	return cmd
}

var settingFlags = []string{
	"log-level", "peer-id", "registry-dir", "state-file", "snap-binary",
	"snapd-socket", "rules-parent-dir", "app-name", "alerts", "secrets-dir",
	"secret-identity", "require-package", "merge-policy",
	"service-probe-attempts", "service-probe-delay",
	"endpoint-probe-attempts", "endpoint-probe-delay", "endpoint-timeout",
	"secret-attempts", "secret-delay", "secret-max-delay",
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to read config file").
				WithCause(err)
		}
		return nil
	}

	viper.SetConfigName("generic-exporter")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.config/generic-exporter")
	if err := viper.ReadInConfig(); err != nil {
		return nil
	}
	return nil
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	zerolog.DefaultContextLogger = &log.Logger
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// settingsFromConfig reads host settings with viper precedence: flag,
// environment, config file, flag default.
func settingsFromConfig() (app.Settings, error) {
	policy, err := policies.ParseMergePolicy(viper.GetString("merge_policy"))
	if err != nil {
		return app.Settings{}, err
	}
	settings := app.Settings{
		PeerID:          viper.GetString("peer_id"),
		AppName:         viper.GetString("app_name"),
		RegistryDir:     viper.GetString("registry_dir"),
		StateFile:       viper.GetString("state_file"),
		SnapBinary:      viper.GetString("snap_binary"),
		SnapdSocket:     viper.GetString("snapd_socket"),
		RulesParentDir:  viper.GetString("rules_parent_dir"),
		AlertsSource:    viper.GetString("alerts"),
		SecretsDir:      viper.GetString("secrets_dir"),
		SecretIdentity:  viper.GetString("secret_identity"),
		RequirePackage:  viper.GetBool("require_package"),
		MergePolicy:     policy,
		EndpointTimeout: viper.GetDuration("endpoint_timeout"),
		ServiceProbe:    probeSettings("service_probe_attempts", "service_probe_delay"),
		EndpointProbe:   probeSettings("endpoint_probe_attempts", "endpoint_probe_delay"),
		SecretProbe:     probeSettings("secret_attempts", "secret_delay"),
	}
	settings.SecretProbe.MaxDelay = viper.GetDuration("secret_max_delay")
	if settings.AppName == "" {
		settings.AppName = app.DefaultAppName
	}
	return settings, nil
}

func probeSettings(attemptsKey string, delayKey string) app.ProbeSettings {
	return app.ProbeSettings{
		Attempts: viper.GetInt(attemptsKey),
		Delay:    viper.GetDuration(delayKey),
	}
}

func exitCodeForError(err error) int {
	switch errbuilder.CodeOf(err) {
	case errbuilder.CodeInvalidArgument, errbuilder.CodeAlreadyExists:
		return 2
	case errbuilder.CodePermissionDenied:
		return 3
	case errbuilder.CodeFailedPrecondition:
		return 4
	case errbuilder.CodeNotFound, errbuilder.CodeInternal:
		return 5
	default:
		return 1
	}
}

func errorMessage(err error) string {
	return shared.ErrorMessage(err)
}
