package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dnstrail/dnstrail/util"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Args:  cobra.NoArgs,
		Short: "Print the version number of dnstrail",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("dnstrail")
			fmt.Printf("Version: %s\n", util.Version)
			fmt.Printf("Build time: %s\n", util.BuildTime)
		},
	}
}
