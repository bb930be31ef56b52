package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCommand() *cobra.Command {
	var cfgPath, host string
	var all bool

	cmd := &cobra.Command{
		Use:   "rm [containerID]",
		Short: "Remove a managed container, like docker rm",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("requires exactly one container id, or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(cfgPath, host)
			if err != nil {
				return err
			}
			if all {
				if err := client.do(cmd.Context(), "DELETE", "/api/admin/containers", nil); err != nil {
					return err
				}
				fmt.Println("all managed containers removed")
				return nil
			}

			if err := client.do(cmd.Context(), "DELETE", "/api/admin/containers/"+args[0], nil); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to sandkasten.yaml")
	cmd.Flags().StringVar(&host, "host", "", "daemon URL, e.g. http://127.0.0.1:8080")
	cmd.Flags().BoolVar(&all, "all", false, "remove every managed container")
	return cmd
}
