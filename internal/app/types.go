package app

import "generic-exporter/internal/types"

type ReconcileRequest struct {
	SpecPath string
	Trigger  types.Trigger
}

type ReconcileResult struct {
	Outcome types.Outcome
}

type RemoveRequest struct{}

type RemoveResult struct {
	PackageName string
}

type ValidateRequest struct {
	SpecPath string
}

type ValidateResult struct {
	Spec types.DesiredSpec
}

type PeersRequest struct {
	PackageName string
}

type PeersResult struct {
	PackageName  string
	Peers        []string
	UsedByOthers bool
}

type DumpAlertsResult struct {
	Path    string
	Content string
	Found   bool
}
