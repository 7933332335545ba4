package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dagucloud/rollbuf/internal/build"
	"github.com/dagucloud/rollbuf/internal/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   build.Slug,
	Short: "Rollbuf keeps the newest items of a stream",
	Long: `Rollbuf keeps the newest items of a stream in a fixed-size rolling buffer.

It can print the last lines of files and follow them as they grow, and it can
sample host resource usage into a bounded history window.
`,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Tail())
	rootCmd.AddCommand(cmd.Monitor())
	rootCmd.AddCommand(cmd.Version())

	build.Version = version
}

var version = "0.0.0"
