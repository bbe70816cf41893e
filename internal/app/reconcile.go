package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"generic-exporter/internal/types"
)

// Reconcile loads the desired spec and converges the host on it. A
// Blocked outcome is a result, not an error; errors are reserved for
// invocations that could not run at all.
func (s Service) Reconcile(ctx context.Context, req ReconcileRequest) (ReconcileResult, error) {
	if err := s.requirePeer(); err != nil {
		return ReconcileResult{}, err
	}
	if !req.Trigger.Valid() {
		return ReconcileResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("unknown trigger: " + string(req.Trigger))
	}
	input, err := s.loadSpec(req.SpecPath)
	if err != nil {
		return ReconcileResult{}, err
	}
	outcome := s.reconciler().Reconcile(ctx, req.Trigger, input)
	return ReconcileResult{Outcome: outcome}, nil
}

// Remove tears down this peer's package resources.
func (s Service) Remove(ctx context.Context, _ RemoveRequest) (RemoveResult, error) {
	if err := s.requirePeer(); err != nil {
		return RemoveResult{}, err
	}
	state, err := s.State.Load()
	if err != nil {
		return RemoveResult{}, err
	}
	if err := s.reconciler().Remove(ctx); err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{PackageName: state.InstalledPackageName}, nil
}

func (s Service) loadSpec(path string) (types.DesiredSpecInput, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return types.DesiredSpecInput{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("desired spec path is required")
	}
	return s.SpecLoader.LoadDesiredSpec(path)
}

func (s Service) requirePeer() error {
	if strings.TrimSpace(s.Settings.PeerID) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("peer id is required")
	}
	return nil
}
