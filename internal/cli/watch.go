package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gatekeep-net/gatekeep/internal/host"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the host in the foreground, reloading on override changes",
	Long: `Load the configured model and keep running: health checks run
periodically and a configured local override file is reloaded on change.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	h, err := host.New(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Run(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Gatekeep running (status: %s). Ctrl-C to stop.\n", h.Filter.Status())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case <-cmd.Context().Done():
	}
	return nil
}
