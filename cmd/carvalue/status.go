// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// ProbeStatus holds the result of one health probe.
type ProbeStatus struct {
	Probe  string `json:"probe"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// ServerStatus holds the status of a running API server.
type ServerStatus struct {
	Addr   string        `json:"addr"`
	Probes []ProbeStatus `json:"probes"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
	timeout    time.Duration
}

// NewStatusCmd creates the status subcommand with all flags configured.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running CarValue server",
		Long: `Show the health of a running server by querying the liveness and
readiness probes on its metrics address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 2*time.Second, "per-probe timeout")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	appCfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if appCfg.Metrics.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("metrics address is disabled; nothing to query")
	}

	client := &http.Client{
		Timeout:   cfg.timeout,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	status := queryServerStatus(cmd.Context(), client, appCfg.Metrics.Addr)

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return err
		}
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// queryServerStatus runs the liveness and readiness probes against addr.
func queryServerStatus(ctx context.Context, client *http.Client, addr string) ServerStatus {
	status := ServerStatus{Addr: addr}
	for _, probe := range []string{"liveness", "readiness"} {
		status.Probes = append(status.Probes, queryProbe(ctx, client, "http://"+addr+"/healthz/"+probe, probe))
	}
	return status
}

func queryProbe(ctx context.Context, client *http.Client, url, probe string) ProbeStatus {
	result := ProbeStatus{Probe: probe}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		result.Detail = fmt.Sprintf("invalid request: %v", err)
		return result
	}
	resp, err := client.Do(req)
	if err != nil {
		result.Detail = fmt.Sprintf("failed to connect: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024)) //nolint:errcheck // detail only
	result.OK = resp.StatusCode == http.StatusOK
	result.Detail = strings.TrimSpace(string(body))
	if !result.OK && result.Detail == "" {
		result.Detail = resp.Status
	}
	return result
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status ServerStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PROBE\tSTATUS\tDETAIL")
	_, _ = fmt.Fprintln(w, "-----\t------\t------")
	for _, p := range status.Probes {
		state := "ok"
		if !p.OK {
			state = "failing"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", p.Probe, state, p.Detail)
	}

	_ = w.Flush()
	return string(buf)
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status ServerStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_ENCODE_FAILED").Wrap(err)
	}
	return string(data), nil
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
