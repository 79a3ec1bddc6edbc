package cmd

import (
	"os"

	"github.com/manvithgkacharya/yt-download/internal/output"
	"github.com/manvithgkacharya/yt-download/internal/utils"
	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove downloaded artifacts and the local tool cache",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			if err := utils.CleanLocal(cfg.DownloadsDir); err != nil {
				output.PrintError("Error cleaning up: " + err.Error())
				os.Exit(1)
			}
			output.PrintSuccess("Downloads and temporary files cleaned up")
		},
	}
}
