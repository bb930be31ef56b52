package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandkasten/pool/internal/config"
	"github.com/sandkasten/pool/internal/engine"
)

type doctorCheck struct {
	Name    string
	Status  string
	Details string
}

func newDoctorCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment checks (Docker reachability, config, work dir)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cfgPath)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to sandkasten.yaml")
	return cmd
}

func runDoctor(cfgPath string) error {
	var checks []doctorCheck
	failures := 0

	cfg, err := config.Load(resolveConfigPath(cfgPath))
	if err != nil {
		checks = append(checks, doctorCheck{Name: "Config", Status: "FAIL", Details: err.Error()})
		failures++
	} else {
		checks = append(checks, doctorCheck{Name: "Config", Status: "OK", Details: fmt.Sprintf("listen=%s image=%s", cfg.Listen, cfg.Image)})

		if cfg.APIKey == "" && !config.IsLoopback(cfg.Listen) {
			checks = append(checks, doctorCheck{Name: "API key", Status: "FAIL", Details: "empty api_key with a non-loopback listen address"})
			failures++
		} else {
			checks = append(checks, doctorCheck{Name: "API key", Status: "OK", Details: "configured or loopback-only"})
		}

		if info, err := os.Stat(cfg.WorkDir); err == nil && info.IsDir() {
			checks = append(checks, doctorCheck{Name: "Work dir", Status: "OK", Details: cfg.WorkDir})
		} else {
			checks = append(checks, doctorCheck{Name: "Work dir", Status: "WARN", Details: cfg.WorkDir + " not present on host (expected inside containers)"})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	eng, err := engine.New()
	if err != nil {
		checks = append(checks, doctorCheck{Name: "Docker client", Status: "FAIL", Details: err.Error()})
		failures++
	} else {
		defer eng.Close()
		if err := eng.Ping(ctx); err != nil {
			checks = append(checks, doctorCheck{Name: "Docker daemon", Status: "FAIL", Details: err.Error()})
			failures++
		} else {
			checks = append(checks, doctorCheck{Name: "Docker daemon", Status: "OK", Details: "reachable"})
		}
	}

	fmt.Println("Sandkasten doctor")
	for _, check := range checks {
		fmt.Printf("[%s] %-14s %s\n", check.Status, check.Name, check.Details)
	}

	if failures > 0 {
		fmt.Printf("\nDoctor found %d blocking issue(s).\n", failures)
		return fmt.Errorf("%d blocking issue(s)", failures)
	}
	fmt.Println("\nDoctor checks passed.")
	return nil
}
