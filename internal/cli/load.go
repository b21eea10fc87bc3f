package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gatekeep-net/gatekeep/internal/host"
)

func init() {
	rootCmd.AddCommand(loadCmd)
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Acquire and activate the configured model",
	Long:  `Run the acquisition pipeline once: fetch the manifest, download and verify the model, and activate it.`,
	Args:  cobra.NoArgs,
	RunE:  runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	h, err := host.New(nil)
	if err != nil {
		return err
	}
	defer h.Close()

	fmt.Println("Loading model...")
	m := h.Filter.Reload(cmd.Context())
	if m == nil {
		return fmt.Errorf("load failed (%s): %s", h.Filter.Status(), h.Filter.LastError())
	}

	if m.Sentinel() {
		fmt.Println("Loaded local override model")
	} else {
		fmt.Printf("Loaded model version %d\n", m.Version)
	}
	return nil
}
