// Command sandkasten runs the container pool daemon, or talks to a running
// daemon's admin API as a thin CLI client.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "sandkasten",
		Short:         "Container-backed code execution host",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newDaemonCommand(),
		newDoctorCommand(),
		newPrewarmCommand(),
		newPsCommand(),
		newRmCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
