package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/flemzord/mnemo/internal/embedding"
)

// gatewayClient talks to a running daemon. The circuit breaker lives in
// the daemon process, so operator commands go through its HTTP API.
type gatewayClient struct {
	base   string
	token  string
	client *http.Client
}

func (c *gatewayClient) do(method, path string, out any) error {
	req, err := http.NewRequest(method, strings.TrimRight(c.base, "/")+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("daemon returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode daemon response: %w", err)
	}
	return nil
}

func embeddingCmd() *cobra.Command {
	c := &gatewayClient{client: &http.Client{Timeout: 10 * time.Second}}
	cmd := &cobra.Command{
		Use:   "embedding",
		Short: "Inspect and reset the daemon's embedding circuit",
	}
	cmd.PersistentFlags().StringVar(&c.base, "addr", "http://127.0.0.1:8080", "Daemon gateway URL")
	cmd.PersistentFlags().StringVar(&c.token, "token", "", "Gateway bearer token")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether remote embeddings are in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st embedding.Status
			if err := c.do(http.MethodGet, "/api/embedding", &st); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Close the circuit so remote embeddings are retried",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var st embedding.Status
			if err := c.do(http.MethodPost, "/api/embedding/reset", &st); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Circuit reset.")
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.AddCommand(status, reset)
	return cmd
}

func printStatus(w io.Writer, st embedding.Status) {
	state := "closed"
	if st.CircuitOpen {
		state = "open (local fallback)"
	}
	fmt.Fprintf(w, "remote configured: %t\n", st.RemoteConfigured)
	fmt.Fprintf(w, "circuit:           %s\n", state)
	fmt.Fprintf(w, "failures:          %d/%d\n", st.Failures, st.Threshold)
	fmt.Fprintf(w, "dimensions:        %d\n", st.Dimensions)
	if st.LastError != "" {
		fmt.Fprintf(w, "last error:        %s\n", st.LastError)
	}
}
