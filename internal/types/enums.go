package types

type Confinement string

const (
	ConfinementStrict  Confinement = "strict"
	ConfinementClassic Confinement = "classic"
)

// Trigger names the external event that caused a reconciliation.
type Trigger string

const (
	TriggerInstall         Trigger = "install"
	TriggerConfigChanged   Trigger = "config-changed"
	TriggerUpdateStatus    Trigger = "update-status"
	TriggerSecretChanged   Trigger = "secret-changed"
	TriggerRelationChanged Trigger = "relation-changed"
)

var knownTriggers = map[Trigger]struct{}{
	TriggerInstall:         {},
	TriggerConfigChanged:   {},
	TriggerUpdateStatus:    {},
	TriggerSecretChanged:   {},
	TriggerRelationChanged: {},
}

func (t Trigger) Valid() bool {
	_, ok := knownTriggers[t]
	return ok
}

type OutcomeStatus string

const (
	OutcomeActive  OutcomeStatus = "active"
	OutcomeBlocked OutcomeStatus = "blocked"
)

// FailureKind classifies the first failure of a reconciliation.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureConfigValidation FailureKind = "config-validation"
	FailurePackageLifecycle FailureKind = "package-lifecycle"
	FailureSecretAccess     FailureKind = "secret-access"
	FailureSecretContent    FailureKind = "secret-content"
	FailureConfigConflict   FailureKind = "config-conflict"
	FailureRegistryIO       FailureKind = "registry-io"
	FailureHealthCheck      FailureKind = "health-check"
)

// MergePolicy selects how colliding leaves are treated when two
// configuration maps are deep-merged.
type MergePolicy string

const (
	MergePolicyUnequal MergePolicy = "unequal"
	MergePolicyStrict  MergePolicy = "strict"
)
