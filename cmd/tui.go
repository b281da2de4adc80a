package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"trading-platform-client/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Run the interactive terminal client",
	Run:   runTUI,
}

func runTUI(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer appDep.Close()

	app := tui.NewApp(appDep.log, appDep.cfg, appDep.api)
	if err := app.Run(ctx); err != nil {
		log.Fatalf("Terminal client exited with error: %v", err)
	}
}
