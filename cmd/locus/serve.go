package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/praetorian-inc/locus/pkg/engine"
	"github.com/praetorian-inc/locus/pkg/serve"
	"github.com/spf13/cobra"
)

var serveDB string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming NDJSON server",
	Long: `Run Locus as a long-lived server that accepts requests on stdin and writes
responses to stdout, one JSON object per line.

The server announces itself with a "ready" response, then answers "run"
and "run_batch" requests until stdin closes, a "close" request arrives or
SIGTERM is received. A failing request is reported and does not stop the
server.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Record results in this history database")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openHistory(serveDB)
	if err != nil {
		return err
	}

	core, err := engine.NewCore(engine.Config{Store: s, Logger: newLogger(cmd)})
	if err != nil {
		s.Close()
		return err
	}
	defer core.Close()

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := serve.NewServer(core, cmd.InOrStdin(), cmd.OutOrStdout())
	return srv.Run(ctx)
}
