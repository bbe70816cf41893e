package types

// Outcome is the single result of one reconciliation. It never carries
// partial state: either everything converged or the first failure is named.
type Outcome struct {
	Status          OutcomeStatus
	Kind            FailureKind
	Message         string
	WorkloadVersion string
}

func Active(workloadVersion string) Outcome {
	return Outcome{Status: OutcomeActive, Message: string(OutcomeActive), WorkloadVersion: workloadVersion}
}

func Blocked(kind FailureKind, message string) Outcome {
	return Outcome{Status: OutcomeBlocked, Kind: kind, Message: message}
}

func (o Outcome) IsActive() bool {
	return o.Status == OutcomeActive
}
