package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"generic-exporter/internal/app"
	"generic-exporter/internal/types"
)

type reconcileOptions struct {
	Spec    string
	Trigger string
}

func newReconcileCommand() *cobra.Command {
	opts := reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Converge the host on the desired spec",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Spec, "spec", "", "Desired spec path (YAML or TOML)")
	cmd.Flags().StringVar(&opts.Trigger, "trigger", string(types.TriggerUpdateStatus), "Event that caused this run (install, config-changed, update-status, secret-changed, relation-changed)")
	_ = viper.BindPFlag("trigger", cmd.Flags().Lookup("trigger"))
	return cmd
}

func runReconcile(ctx context.Context, cmd *cobra.Command, opts reconcileOptions) error {
	settings, err := settingsFromConfig()
	if err != nil {
		return err
	}
	service := newAppService(settings)
	result, err := service.Reconcile(ctx, app.ReconcileRequest{
		SpecPath: resolveString(cmd, opts.Spec, "spec", "spec"),
		Trigger:  types.Trigger(resolveString(cmd, opts.Trigger, "trigger", "trigger")),
	})
	if err != nil {
		return err
	}
	outcome := result.Outcome
	if !outcome.IsActive() {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("blocked (%s): %s", outcome.Kind, outcome.Message))
	}
	if outcome.WorkloadVersion != "" {
		fmt.Printf("active: workload version %s\n", outcome.WorkloadVersion)
		return nil
	}
	fmt.Println("active")
	return nil
}
