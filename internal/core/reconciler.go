package core

import (
	"context"
	"fmt"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"generic-exporter/internal/ports"
	"generic-exporter/internal/shared"
	"generic-exporter/internal/types"
)

const endpointHost = "localhost"

// Reconciler converges one instance's package and service on a desired
// spec. It is not safe for concurrent use; callers serialize invocations.
// AppliedState is read and written only here.
type Reconciler struct {
	PeerID       string
	Compiler     DesiredSpecCompiler
	MergePolicy  types.MergePolicy
	Packages     ports.PackageManagerPort
	PackageInfo  ports.PackageInfoPort
	Registry     ports.RegistryPort
	State        ports.StateStorePort
	Secrets      ports.SecretSourcePort
	Endpoint     ports.EndpointPort
	Alerts       ports.AlertRulesPort
	AlertsSource string

	ServiceProbe  Probe
	EndpointProbe Probe
	SecretProbe   Probe
}

// failure pairs the first failing error with its kind.
type failure struct {
	kind types.FailureKind
	err  error
}

func fail(kind types.FailureKind, err error) *failure {
	return &failure{kind: kind, err: err}
}

func lifecycleError(format string, args ...any) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf(format, args...))
}

// Reconcile runs one invocation and always ends in Active or Blocked.
// Failures are evaluated in a fixed order: validation, identity
// transition, configuration, health.
func (r Reconciler) Reconcile(ctx context.Context, trigger types.Trigger, input types.DesiredSpecInput) types.Outcome {
	log.Ctx(ctx).Info().Str("trigger", string(trigger)).Str("peer", r.PeerID).Msg("reconciling")
	outcome := r.reconcile(ctx, trigger, input)
	if outcome.IsActive() {
		log.Ctx(ctx).Info().Str("workload_version", outcome.WorkloadVersion).Msg(outcome.Message)
	} else {
		log.Ctx(ctx).Warn().Str("kind", string(outcome.Kind)).Msg(outcome.Message)
	}
	return outcome
}

func (r Reconciler) reconcile(ctx context.Context, trigger types.Trigger, input types.DesiredSpecInput) types.Outcome {
	spec, f := r.prepare(ctx, input)
	if f != nil {
		return types.Blocked(f.kind, shared.ErrorMessage(f.err))
	}
	state, err := r.State.Load()
	if err != nil {
		return types.Blocked(types.FailurePackageLifecycle, shared.ErrorMessage(err))
	}
	if state.InstalledPackageName != spec.PackageName {
		log.Ctx(ctx).Info().
			Str("applied", state.InstalledPackageName).
			Str("desired", spec.PackageName).
			Msg("installing package resources")
		if f := r.transition(ctx, &state, spec); f != nil {
			return types.Blocked(f.kind, shared.ErrorMessage(f.err))
		}
	}
	if trigger == types.TriggerConfigChanged {
		log.Ctx(ctx).Info().Str("package", spec.PackageName).Msg("updating configuration")
		if f := r.configure(ctx, spec); f != nil {
			return types.Blocked(f.kind, shared.ErrorMessage(f.err))
		}
	}
	if f := r.checkHealth(ctx, spec); f != nil {
		return types.Blocked(f.kind, shared.ErrorMessage(f.err))
	}
	return types.Active(r.workloadVersion(ctx, spec))
}

// prepare validates the input, pins the package source and folds the
// secret overlay into the public configuration. Nothing here has side
// effects on the host.
func (r Reconciler) prepare(ctx context.Context, input types.DesiredSpecInput) (types.DesiredSpec, *failure) {
	spec, err := r.Compiler.Compile(ctx, input)
	if err != nil {
		return types.DesiredSpec{}, fail(types.FailureConfigValidation, err)
	}
	if spec.ManagesPackage() {
		if f := r.resolveSource(ctx, &spec); f != nil {
			return types.DesiredSpec{}, f
		}
	}
	if spec.ConfigSecret != "" {
		if f := r.applySecretOverlay(ctx, &spec); f != nil {
			return types.DesiredSpec{}, f
		}
	}
	return spec, nil
}

func (r Reconciler) resolveSource(ctx context.Context, spec *types.DesiredSpec) *failure {
	info, err := r.PackageInfo.Info(ctx, spec.PackageName, spec.Source.Channel)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("package", spec.PackageName).Msg("package info lookup failed")
		return fail(types.FailureConfigValidation, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("could not fetch info for package %s", spec.PackageName)).
			WithCause(err))
	}
	if spec.Source.Channel != "" && info.Revision > 0 {
		spec.Source.Revision = info.Revision
	}
	if spec.Source.Channel != "" && spec.Source.Revision <= 0 {
		return fail(types.FailureConfigValidation, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("could not determine revision for package %s on channel %s", spec.PackageName, spec.Source.Channel)))
	}
	if info.Confinement == types.ConfinementClassic && !spec.Classic {
		return fail(types.FailureConfigValidation, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("package %s requires classic confinement, enable classic", spec.PackageName)))
	}
	return nil
}

func (r Reconciler) applySecretOverlay(ctx context.Context, spec *types.DesiredSpec) *failure {
	if r.Secrets == nil {
		return fail(types.FailureSecretAccess, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("no secret source configured for secret '%s'", spec.ConfigSecret)))
	}
	secretConfig, err := Retry(ctx, r.SecretProbe, IsSecretAccessError, func(ctx context.Context) (map[string]any, error) {
		return r.Secrets.Fetch(ctx, spec.ConfigSecret)
	})
	if err != nil {
		if IsSecretAccessError(err) {
			return fail(types.FailureSecretAccess, err)
		}
		return fail(types.FailureSecretContent, err)
	}
	merged, err := MergeConfig(secretConfig, spec.Config, r.MergePolicy)
	if err != nil {
		return fail(types.FailureConfigConflict, err)
	}
	spec.Config = merged
	return nil
}

// IsSecretAccessError reports whether a secret fetch failed to reach the
// secret rather than finding malformed content. Only these are retried.
// Malformed content is always reported as an invalid argument.
func IsSecretAccessError(err error) bool {
	return err != nil && !shared.HasCode(err, errbuilder.CodeInvalidArgument)
}

// transition moves the instance from its applied identity to the desired
// one. State is saved after each committed step so a later invocation
// never observes a half-applied transition.
func (r Reconciler) transition(ctx context.Context, state *types.AppliedState, spec types.DesiredSpec) *failure {
	if spec.ManagesPackage() {
		if err := r.Registry.Register(ctx, r.PeerID, spec.PackageName); err != nil {
			return fail(types.FailureRegistryIO, err)
		}
	}
	if previous := state.InstalledPackageName; previous != "" {
		if f := r.release(ctx, previous); f != nil {
			return f
		}
		state.InstalledPackageName = ""
		if err := r.State.Save(*state); err != nil {
			return fail(types.FailurePackageLifecycle, err)
		}
	}
	if !spec.ManagesPackage() {
		log.Ctx(ctx).Info().Msg("no package to install, skipping installation")
		return nil
	}
	return r.install(ctx, state, spec)
}

func (r Reconciler) install(ctx context.Context, state *types.AppliedState, spec types.DesiredSpec) *failure {
	assert.NotEmpty(ctx, spec.PackageName, "package name must be set before install")

	if err := r.Packages.Install(ctx, spec.PackageName, spec.Source.Revision, spec.Classic); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("package", spec.PackageName).Int("revision", spec.Source.Revision).Msg("install failed")
		return fail(types.FailurePackageLifecycle, lifecycleError("failed to install package %s", spec.PackageName))
	}
	state.InstalledPackageName = spec.PackageName
	if err := r.State.Save(*state); err != nil {
		return fail(types.FailurePackageLifecycle, err)
	}
	if err := r.Packages.Start(ctx, spec.PackageName, true); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("package", spec.PackageName).Msg("start failed")
		return fail(types.FailurePackageLifecycle, lifecycleError("failed to start services for package %s", spec.PackageName))
	}
	LogSystemEvent(ctx, SystemEventStartup, spec.PackageName, "")
	return nil
}

// release drops this peer's claim on a package and removes the package
// when no other peer holds it. Two peers may both decide to remove; that
// is safe because removing an absent package succeeds.
func (r Reconciler) release(ctx context.Context, name string) *failure {
	if err := r.Registry.Unregister(ctx, r.PeerID, name); err != nil {
		if !shared.HasCode(err, errbuilder.CodeNotFound) {
			return fail(types.FailureRegistryIO, err)
		}
		log.Ctx(ctx).Warn().Str("package", name).Msg("registration already absent")
	}
	used, err := r.Registry.IsUsedByOtherUnits(ctx, r.PeerID, name)
	if err != nil {
		return fail(types.FailureRegistryIO, err)
	}
	if used {
		log.Ctx(ctx).Info().Str("package", name).Msg("package still used by other peers, keeping it installed")
		return nil
	}
	if err := r.Packages.Remove(ctx, name); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("package", name).Msg("remove failed")
		return fail(types.FailurePackageLifecycle, lifecycleError("failed to uninstall package %s", name))
	}
	return nil
}

func (r Reconciler) configure(ctx context.Context, spec types.DesiredSpec) *failure {
	r.installAlertRules(ctx)
	if !spec.ManagesPackage() {
		log.Ctx(ctx).Info().Msg("no package to configure, skipping configuration")
		return nil
	}
	name := spec.PackageName

	if err := r.Packages.Stop(ctx, name, true); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("package", name).Msg("stop failed")
		return fail(types.FailurePackageLifecycle, lifecycleError("failed to stop services for package %s", name))
	}
	LogSystemEvent(ctx, SystemEventShutdown, name, "")

	if err := r.Packages.Ensure(ctx, name, spec.Source.Revision, spec.Classic); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("package", name).Msg("ensure failed")
		return fail(types.FailurePackageLifecycle, lifecycleError("failed to configure package %s", name))
	}

	current, err := r.Packages.Get(ctx, name)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("package", name).Msg("reading config failed")
		return fail(types.FailurePackageLifecycle, lifecycleError("failed to read config for package %s", name))
	}
	stale := KeysToUnset(FlattenConfig(current, ""), FlattenConfig(spec.Config, ""))
	if len(stale) > 0 {
		if err := r.Packages.Unset(ctx, name, stale); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("package", name).Strs("keys", stale).Msg("unset failed")
			return fail(types.FailurePackageLifecycle, lifecycleError("failed to unset config keys [%s] for package %s", strings.Join(stale, ", "), name))
		}
	}
	if len(spec.Config) > 0 {
		if err := r.Packages.Set(ctx, name, spec.Config); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("package", name).Msg("set failed")
			return fail(types.FailurePackageLifecycle, lifecycleError("failed to set config for package %s", name))
		}
	}
	if len(spec.Plugs) > 0 {
		if err := r.Packages.Connect(ctx, name, spec.Plugs); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("package", name).Strs("plugs", spec.Plugs).Msg("connect failed")
			return fail(types.FailurePackageLifecycle, lifecycleError("failed to connect plugs [%s] for package %s", strings.Join(spec.Plugs, ", "), name))
		}
	}
	if err := r.Packages.Start(ctx, name, true); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("package", name).Msg("restart failed")
		return fail(types.FailurePackageLifecycle, lifecycleError("failed to restart services for package %s", name))
	}
	LogSystemEvent(ctx, SystemEventRestart, name, "")
	return nil
}

// installAlertRules never blocks: unusable rules are logged and skipped.
func (r Reconciler) installAlertRules(ctx context.Context) {
	if r.Alerts == nil || strings.TrimSpace(r.AlertsSource) == "" {
		log.Ctx(ctx).Debug().Msg("no alert rules provided, skipping alerts configuration")
		return
	}
	installed, err := r.Alerts.Install(r.AlertsSource)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("source", r.AlertsSource).Msg("skipping alerts configuration")
		return
	}
	if !installed {
		log.Ctx(ctx).Info().Str("source", r.AlertsSource).Msg("alert rules empty, skipping alerts configuration")
	}
}

func (r Reconciler) checkHealth(ctx context.Context, spec types.DesiredSpec) *failure {
	if spec.ManagesPackage() {
		active := r.ServiceProbe.Check(ctx, func(ctx context.Context) bool {
			return r.servicesActive(ctx, spec.PackageName)
		})
		if !active {
			return fail(types.FailureHealthCheck, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("package services for %s are not active", spec.PackageName)))
		}
	}
	url := MetricsURL(spec)
	reachable := r.EndpointProbe.Check(ctx, func(ctx context.Context) bool {
		return r.Endpoint.Reachable(ctx, url)
	})
	if !reachable {
		subject := spec.PackageName
		if subject == "" {
			subject = url
		}
		return fail(types.FailureHealthCheck, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("metrics endpoint for %s is not reachable", subject)))
	}
	return nil
}

// servicesActive is vacuously true for a package without services.
func (r Reconciler) servicesActive(ctx context.Context, name string) bool {
	services, err := r.Packages.Services(ctx, name)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("package", name).Msg("service status query failed")
		return false
	}
	for _, service := range services {
		if !service.Active {
			return false
		}
	}
	return true
}

func (r Reconciler) workloadVersion(ctx context.Context, spec types.DesiredSpec) string {
	if !spec.ManagesPackage() {
		return ""
	}
	version, err := r.Packages.Version(ctx, spec.PackageName)
	if err != nil || version == "" {
		return "unknown"
	}
	return version
}

// MetricsURL is the local exporter endpoint probed for health.
func MetricsURL(spec types.DesiredSpec) string {
	return fmt.Sprintf("http://%s:%d/%s", endpointHost, spec.ExporterPort, spec.MetricsPath)
}

// Remove tears the instance down. The registration is always dropped, the
// package is removed only when no other peer holds it, and the applied
// state is cleared unless removal itself failed.
func (r Reconciler) Remove(ctx context.Context) error {
	log.Ctx(ctx).Info().Str("peer", r.PeerID).Msg("removing package resources")
	if r.Alerts != nil {
		if err := r.Alerts.Clear(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("failed to clear alert rules")
		}
	}
	state, err := r.State.Load()
	if err != nil {
		return err
	}
	if state.InstalledPackageName == "" {
		return nil
	}
	if f := r.release(ctx, state.InstalledPackageName); f != nil {
		return f.err
	}
	return r.State.Save(types.AppliedState{})
}
