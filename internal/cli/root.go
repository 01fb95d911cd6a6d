// Package cli implements the attendance command-line client.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"attendance/internal/geo"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string

	Lat      float64
	Lng      float64
	Accuracy float64

	build AppBuilder
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command with the production stack.
func NewRootCommand() *cobra.Command {
	return newRootCommand(BuildApp)
}

func newRootCommand(build AppBuilder) *cobra.Command {
	opts := &RootOptions{build: build}

	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Location-verified attendance client",
		Long: `attendance records clock-in and clock-out punches against the attendance
backend. Each punch checks device binding, resolves the stable device id,
samples the position and submits the consolidated fix as evidence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.Format, "format", "text", "output format (text|json)")
	flags.Float64Var(&opts.Lat, "lat", 0, "latitude of the current position (required for punch and test-location)")
	flags.Float64Var(&opts.Lng, "lng", 0, "longitude of the current position (required for punch and test-location)")
	flags.Float64Var(&opts.Accuracy, "accuracy", geo.DefaultAccuracy, "accuracy in meters of the current position")

	cmd.AddCommand(
		newPunchCommand(opts),
		newTestLocationCommand(opts),
		newQueryCommand(opts),
		newFormCommand(opts),
		newDeviceIDCommand(opts),
		newValidateIDsCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// requirePosition rejects commands that sample a position when --lat and
// --lng were not both given, so no fix is ever invented.
func (o *RootOptions) requirePosition(cmd *cobra.Command) error {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return NewExitError(ExitCommandError, "--lat and --lng are required: pass the current position")
	}
	if !geo.ValidCoordinates(o.Lat, o.Lng) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid position %v, %v", o.Lat, o.Lng))
	}
	if o.Accuracy <= 0 {
		return NewExitError(ExitCommandError, "--accuracy must be positive")
	}
	return nil
}

// params collects the build inputs for cmd with the position given on the
// command line. Interactive commands get a terminal confirmer for device
// binding.
func (o *RootOptions) params(cmd *cobra.Command, interactive bool) BuildParams {
	params := BuildParams{
		Position: geo.StaticProvider{Lat: o.Lat, Lng: o.Lng, Accuracy: o.Accuracy},
		Progress: cmd.ErrOrStderr(),
		Verbose:  o.Verbose,
	}
	if interactive {
		params.Confirmer = NewPromptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr())
	}
	return params
}

func (o *RootOptions) open(ctx context.Context, cmd *cobra.Command, interactive bool) (*App, error) {
	return o.openWith(ctx, o.params(cmd, interactive), true)
}

// openWith builds the stack. With recoverID set, the device identifier is
// rewritten into every tier from the first tier holding it before the
// command runs.
func (o *RootOptions) openWith(ctx context.Context, params BuildParams, recoverID bool) (*App, error) {
	app, err := o.build(ctx, params)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to start", err)
	}
	if recoverID {
		app.Resolver.RecoverDeviceID(ctx)
	}
	return app, nil
}
