package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gatekeep-net/gatekeep/internal/host"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline status and recent model loads",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, err := host.New(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	fmt.Printf("Status:     %s\n", h.Filter.Status())
	if lastErr := h.Filter.LastError(); lastErr != "" {
		fmt.Printf("Last error: %s\n", lastErr)
	}
	if v, _ := h.DB.GetSetting("model_version"); v != "" {
		fmt.Printf("Last model: version %s\n", v)
	}

	records, err := h.DB.RecentLoads(10)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	fmt.Println("\nRecent loads:")
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPP\tLOADED")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.Version, r.AppVersion, r.LoadedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
