package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/campus/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve progress, quizzes, chat and ingestion over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, "")
		if err != nil {
			return err
		}
		defer e.Close()

		addr := e.cfg.HTTPAddr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}
		if e.cfg.LogMode == "prod" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps := api.Deps{
			Repo:   e.st,
			Writer: e.writer,
			Reader: e.reader,
			Log:    e.log,
		}
		if rl, err := e.newRelay(ctx); err != nil {
			e.log.Warn("chat disabled", "error", err)
		} else {
			deps.Relay = rl
		}
		if svc, err := e.newIngest(ctx); err != nil {
			e.log.Warn("ingestion disabled", "error", err)
		} else {
			deps.Ingest = svc
		}

		return api.Serve(ctx, addr, api.NewRouter(deps), e.log)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides CAMPUS_HTTP_ADDR)")
}
