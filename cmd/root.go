package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "free-rnc",
	Short: "This is a UMTS RNC control plane simulator.",
	Long:  "This is a discrete-event simulator of the UMTS RNC control plane: RRC, RAB management, soft handover and Iur.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
