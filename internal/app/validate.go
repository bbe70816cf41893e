package app

import (
	"context"

	"generic-exporter/internal/core"
)

// Validate compiles the desired spec without touching the host.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	input, err := s.loadSpec(req.SpecPath)
	if err != nil {
		return ValidateResult{}, err
	}
	spec, err := core.NewDesiredSpecCompiler(s.Settings.RequirePackage).Compile(ctx, input)
	if err != nil {
		return ValidateResult{}, err
	}
	return ValidateResult{Spec: spec}, nil
}
