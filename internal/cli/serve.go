package cli

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"attendance/internal/geo"
	"attendance/internal/platform/httpserver"
	platformmetrics "attendance/internal/platform/metrics"
	httptransport "attendance/internal/transport/http"
)

func newServeCommand(root *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local attendance API",
		Long: `serve exposes the attendance actions over HTTP for a local UI and runs the
periodic device identifier consistency sweep. Each punch or location test
carries its own position in the request body. Device binding cannot be
confirmed over HTTP; unbound devices are refused.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := root.openWith(ctx, BuildParams{
				Position: geo.RequestProvider{},
				Progress: cmd.ErrOrStderr(),
				Verbose:  root.Verbose,
			}, true)
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = app.Config.ListenAddr
			}
			handler := httptransport.NewHandler(app.Service, app.Resolver, app.Coordinator, app.Monitor, app.Logger)
			router := httptransport.NewRouter(handler, platformmetrics.Handler(app.Registry))
			srv := httpserver.New(addr, router)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				app.Resolver.RunConsistencySweep(gctx, app.Config.ConsistencyCheckInterval)
				return nil
			})
			g.Go(func() error {
				return httpserver.Run(gctx, srv, app.Logger)
			})
			if err := g.Wait(); err != nil {
				return WrapExitError(ExitFailure, "server stopped", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to LISTEN_ADDR)")
	return cmd
}
