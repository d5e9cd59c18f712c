package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marketengine/binary-engine/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Trip the running engine's kill switch out-of-band",
	Long: `Creates the kill-switch control file the running engine polls for.

Once the file exists, the engine cancels every open order, stops placing
new ones, and stays tripped until the file is removed and the process is
restarted. This lets an operator halt trading without shell access to the
engine's process or host.`,
	RunE: runKill,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.KillSwitchFilePath == "" {
		return fmt.Errorf("KILL_SWITCH_FILE_PATH is not configured")
	}

	f, err := os.OpenFile(cfg.KillSwitchFilePath, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create kill switch file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	fmt.Printf("kill switch file created at %s; the running engine will trip within %dms\n",
		cfg.KillSwitchFilePath, cfg.KillSwitchPollMs)
	return nil
}
