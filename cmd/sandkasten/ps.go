package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandkasten/pool/internal/store"
)

func newPsCommand() *cobra.Command {
	var cfgPath, host string

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List sessions, like docker ps",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAdminClient(cfgPath, host)
			if err != nil {
				return err
			}

			var sessions []store.SessionRecord
			if err := client.do(cmd.Context(), "GET", "/api/sessions", &sessions); err != nil {
				return err
			}

			fmt.Printf("%-36s %-10s %-8s %-12s %s\n", "SESSION ID", "STATUS", "QUEUE", "CREATED", "CONTAINER")
			for _, s := range sessions {
				created := s.CreatedAt.Format("2006-01-02")
				if t := s.CreatedAt; t.Year() == time.Now().Year() && t.YearDay() == time.Now().YearDay() {
					created = s.CreatedAt.Format("15:04:05")
				}
				fmt.Printf("%-36s %-10s %-8d %-12s %s\n", s.ID, s.Status, s.QueuePosition, created, s.ContainerID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to sandkasten.yaml")
	cmd.Flags().StringVar(&host, "host", "", "daemon URL, e.g. http://127.0.0.1:8080")
	return cmd
}
