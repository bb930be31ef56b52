package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPrewarmCommand() *cobra.Command {
	var cfgPath, host string

	cmd := &cobra.Command{
		Use:   "prewarm",
		Short: "Trigger the daemon's ensurePrewarmed against its configured target",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(cfgPath, host)
			if err != nil {
				return err
			}
			if err := client.do(cmd.Context(), "POST", "/api/admin/prewarm", nil); err != nil {
				return err
			}
			fmt.Println("prewarm triggered")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to sandkasten.yaml")
	cmd.Flags().StringVar(&host, "host", "", "daemon URL, e.g. http://127.0.0.1:8080")
	return cmd
}
