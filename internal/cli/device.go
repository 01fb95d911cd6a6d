package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"attendance/internal/identity/models"
)

func newDeviceIDCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "device-id",
		Short:         "Print the stable device identifier",
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

			ident, err := app.Resolver.Identity(cmd.Context())
			if err != nil {
				return out.Fail(err)
			}
			if root.Format == "json" {
				return out.Data(ident)
			}
			return out.Data(formatIdentity(ident))
		},
	}
}

func newValidateIDsCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate-ids",
		Short:         "Check and repair the stored device identifier across tiers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := root.formatter(cmd)
			// the report shows the tiers as found, so no start-up recovery
			app, err := root.openWith(cmd.Context(), root.params(cmd, false), false)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Resolver.ValidateStoredIDs(cmd.Context())
			if err != nil {
				return out.Fail(err)
			}
			if root.Format == "json" {
				return out.Data(report)
			}
			return out.Data(formatReport(report))
		},
	}
}

func formatIdentity(ident models.DeviceIdentity) string {
	return fmt.Sprintf("%s\n  created: %s\n  app version: %s",
		ident.ID, ident.CreatedAt.UTC().Format(time.RFC3339), orDash(ident.AppVersionAtCreation))
}

func formatReport(r models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "durable:   %s\n", orDash(r.Before.Durable))
	fmt.Fprintf(&b, "session:   %s\n", orDash(r.Before.Session))
	fmt.Fprintf(&b, "redundant: %s\n", orDash(r.Before.Redundant))
	if !r.Changed() {
		b.WriteString("consistent")
		return b.String()
	}
	if r.Adopted != "" {
		fmt.Fprintf(&b, "adopted %s from %s\n", r.Adopted, r.Source)
	}
	repaired := make([]string, 0, len(r.Repaired))
	for _, t := range r.Repaired {
		repaired = append(repaired, string(t))
	}
	if len(repaired) > 0 {
		fmt.Fprintf(&b, "repaired: %s\n", strings.Join(repaired, ", "))
	}
	if r.VersionSet {
		b.WriteString("version refreshed\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
