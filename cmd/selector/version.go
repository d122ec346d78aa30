package main

import (
	"fmt"

	"github.com/spf13/cobra"

	selector "github.com/nearwallets/selector"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of selector",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("selector version %s\n", selector.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
