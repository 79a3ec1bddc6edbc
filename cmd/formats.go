package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/manvithgkacharya/yt-download/internal/output"
	"github.com/manvithgkacharya/yt-download/internal/resolver"
	"github.com/spf13/cobra"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats [URL]",
		Short: "List available encoding variants for a URL",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig()
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			res, err := resolver.New(cfg.ResolveTimeout.Std(), cfg.RandomizeUA)
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			info, err := res.Resolve(context.Background(), args[0])
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}

			output.PrintHeader(info.Title)
			output.PrintDetail(fmt.Sprintf("Duration: %ds", info.Duration))
			fmt.Println()
			output.PrintInfo("Video formats (mp4):")
			if len(info.Videos) == 0 {
				output.PrintWarning("  none")
			}
			for _, v := range info.Videos {
				fmt.Printf("  %s %-8s %-12s %s\n", output.StyleSymbols["bullet"], v.ID, v.Resolution, v.Size)
			}
			fmt.Println()
			output.PrintInfo("Audio formats:")
			if len(info.Audios) == 0 {
				output.PrintWarning("  none")
			}
			for _, a := range info.Audios {
				fmt.Printf("  %s %-8s %-12s %s\n", output.StyleSymbols["bullet"], a.ID, a.Bitrate, a.Size)
			}
		},
	}
}
