package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"trading-platform-client/internal/mockserver"

	"github.com/spf13/cobra"
)

var mockServerCmd = &cobra.Command{
	Use:   "mockserver",
	Short: "Run the local stand-in analysis backend",
	Run:   runMockServer,
}

func runMockServer(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer appDep.Close()

	server := mockserver.NewServer(appDep.cfg.MockServer, appDep.log)
	appDep.log.Info("Starting mock backend server")
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Mock server exited with error: %v", err)
	}
}
