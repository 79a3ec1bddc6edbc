package cmd

import (
	"fmt"
	"os"

	"github.com/manvithgkacharya/yt-download/internal/config"
	"github.com/manvithgkacharya/yt-download/internal/utils"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	downloadsDir string
	debug        bool
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "yt-download",
	Short:   "yt-download fetches media variants through yt-dlp, as a server or from the CLI",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the YAML config and applies flag overrides on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if downloadsDir != "" {
		cfg.DownloadsDir = downloadsDir
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&downloadsDir, "downloads-dir", "d", "", "Directory for downloaded artifacts")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newFormatsCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())
}
