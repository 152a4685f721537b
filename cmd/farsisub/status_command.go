package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"farsisub/internal/config"
)

type statusReport struct {
	Running    bool   `json:"running"`
	APIAddress string `json:"apiAddress"`
	PID        int    `json:"pid,omitempty"`
	Health     string `json:"health,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the running server's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := fetchStatus(cmd.Context(), cfg)
			if asJSON {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			if !report.Running {
				fmt.Fprintf(out, "Server: not reachable at %s\n", report.APIAddress)
				if report.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", report.Error)
				}
				return nil
			}
			fmt.Fprintf(out, "Server: running at %s\n", report.APIAddress)
			if report.PID > 0 {
				fmt.Fprintf(out, "PID: %d\n", report.PID)
			}
			fmt.Fprintf(out, "Health: %s\n", report.Health)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func fetchStatus(ctx context.Context, cfg *config.Config) statusReport {
	addr := dialAddress(cfg.Paths.APIBind)
	report := statusReport{APIAddress: addr}

	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || resp.StatusCode != http.StatusOK {
		report.Error = fmt.Sprintf("unexpected health response (HTTP %d)", resp.StatusCode)
		return report
	}
	report.Running = true
	report.Health = body.Status
	report.PID = readPID(cfg.PIDPath())
	return report
}

// dialAddress maps wildcard bind hosts to loopback.
func dialAddress(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
