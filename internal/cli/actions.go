package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"attendance/internal/checkin/models"
	"attendance/internal/checkin/presenter"
)

func newPunchCommand(root *RootOptions) *cobra.Command {
	var (
		code  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "punch <in|out>",
		Short: "Record a clock-in or clock-out",
		Example: `  attendance punch in --code 1234 --lat 25.0339 --lng 121.5645
  attendance punch out --code 1234 --force`,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     []string{"in", "out"},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := models.Direction(strings.ToUpper(args[0]))
			if !direction.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown direction %q: must be in or out", args[0]))
			}
			if err := root.requirePosition(cmd); err != nil {
				return err
			}

			out := root.formatter(cmd)
			app, err := root.open(cmd.Context(), cmd, true)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Service.Punch(cmd.Context(), models.PunchRequest{Code: code, Direction: direction, Force: force})
			if err != nil {
				return out.Fail(err)
			}
			out.Debugf("device %s, %d samples, bound=%t", res.DeviceID, res.Location.SampleCount, res.Bound)
			return out.Outcome(presenter.Punch(res.Message, res.Detail), res)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "four-digit employee code")
	cmd.Flags().BoolVar(&force, "force", false, "confirm a punch the backend flagged for review")
	return cmd
}

func newTestLocationCommand(root *RootOptions) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:           "test-location",
		Short:         "Check the current position against the check-in areas",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.requirePosition(cmd); err != nil {
				return err
			}
			out := root.formatter(cmd)
			app, err := root.open(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Service.TestLocation(cmd.Context(), code)
			if err != nil {
				return out.Fail(err)
			}
			return out.Outcome(presenter.Location(res), res)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "four-digit employee code")
	return cmd
}

func newQueryCommand(root *RootOptions) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:           "query",
		Short:         "Show this month's attendance records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := root.formatter(cmd)
			app, err := root.open(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Service.QueryAttendance(cmd.Context(), code)
			if err != nil {
				return out.Fail(err)
			}
			return out.Outcome(presenter.Attendance(res), res)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "four-digit employee code")
	return cmd
}

func newFormCommand(root *RootOptions) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "form <card-correction|overtime|leave|shift-change> [field...]",
		Short: "Submit a request form",
		Long: `form submits one of the request forms. Fields are passed to the backend
positionally, in the order given.`,
		Example:       `  attendance form leave --code 1234 2026-10-20 2026-10-21 "family event"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := root.formatter(cmd)
			app, err := root.open(cmd.Context(), cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()

			fields := make([]any, 0, len(args)-1)
			for _, f := range args[1:] {
				fields = append(fields, f)
			}
			res, err := app.Service.SubmitForm(cmd.Context(), code, models.FormKind(args[0]), fields)
			if err != nil {
				return out.Fail(err)
			}
			return out.Outcome(presenter.Form(res), res)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "four-digit employee code")
	return cmd
}
