package cmd

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory engine over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			engine, conf, err := openEngine(ctx, flags)
			if err != nil {
				return err
			}
			defer closeEngine(engine)
			logger := engine.Logger()

			if addr != "" {
				conf.Server.Addr = addr
			}

			server := &http.Server{
				Addr:              conf.Server.Addr,
				Handler:           createServerHandler(ctx, engine, &conf.Server, logger),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext: func(net.Listener) context.Context {
					return ctx
				},
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("failed to shutdown server", mylog.Err(err))
				}
			}()

			logger.Info("server started", slog.String("addr", conf.Server.Addr))
			defer logger.Info("server stopped")

			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (overrides server.addr)")

	return cmd
}
