package main

import (
	"fmt"

	"github.com/aretw0/ternlab"
	"github.com/aretw0/ternlab/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of ternlab",
	Run: func(cmd *cobra.Command, args []string) {
		if banner, _ := cmd.Flags().GetBool("banner"); banner {
			tui.PrintBanner(cmd.OutOrStdout(), ternlab.Version)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ternlab version %s\n", ternlab.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("banner", false, "Print the ASCII banner")
}
