package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gatekeep-net/gatekeep/internal/host"
)

var classifyChannel int64

func init() {
	classifyCmd.Flags().Int64VarP(&classifyChannel, "channel", "c", 0, "channel id to attribute messages to")
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify [MESSAGE]",
	Short: "Run one message (or stdin lines) through the filter",
	Long: `Classify a message with the active rules and model.
With no argument, reads messages line by line from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	h, err := host.New(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.Run(cmd.Context()); err != nil {
		return err
	}

	if len(args) == 1 {
		printVerdict(cmd.Context(), h, args[0])
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		printVerdict(cmd.Context(), h, scanner.Text())
	}
	return scanner.Err()
}

func printVerdict(ctx context.Context, h *host.Host, message string) {
	v := h.Filter.Check(ctx, classifyChannel, message)
	if v.Flagged() {
		fmt.Printf("FLAGGED  %-8s %.2f (%s)  %s\n", v.Category, v.Confidence, v.Source, message)
	} else {
		fmt.Printf("ok       %-8s %.2f (%s)  %s\n", v.Category, v.Confidence, v.Source, message)
	}
}
