// diligctl is a small admin client for the diligence HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func (c *apiClient) get(path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := c.http.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return body, nil
}

// printJSON re-indents the API response for the terminal.
func printJSON(raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}

func newRootCmd() *cobra.Command {
	var apiURL string
	client := &apiClient{http: &http.Client{Timeout: 15 * time.Second}}

	cmd := &cobra.Command{
		Use:          "diligctl",
		Short:        "Admin client for the diligence service",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client.baseURL = apiURL
			if env := os.Getenv("DILIGENCE_API"); env != "" && !cmd.Flags().Changed("api") {
				client.baseURL = env
			}
		},
	}
	cmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8080", "base URL of the diligence API")

	cmd.AddCommand(
		newDealsCmd(client),
		newBoardCmd(client),
		newProgressCmd(client),
	)
	return cmd
}

func newDealsCmd(client *apiClient) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "deals",
		Short: "List deals",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if status != "" {
				params.Set("status", status)
			}
			body, err := client.get("/api/v1/deals", params)
			if err != nil {
				return err
			}
			return printJSON(body)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by deal status")
	return cmd
}

func newBoardCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "board <deal-id>",
		Short: "Show a deal's stage board with gate state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{"deal_id": {args[0]}}
			body, err := client.get("/api/v1/stages/board", params)
			if err != nil {
				return err
			}
			return printJSON(body)
		},
	}
}

func newProgressCmd(client *apiClient) *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "progress <deal-id>",
		Short: "Show a deal's completion rollup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/progress/categories"
			if by == "stage" {
				path = "/api/v1/progress/stages"
			} else if by != "category" {
				return fmt.Errorf("unknown grouping %q, want category or stage", by)
			}
			params := url.Values{"deal_id": {args[0]}}
			body, err := client.get(path, params)
			if err != nil {
				return err
			}
			return printJSON(body)
		},
	}
	cmd.Flags().StringVar(&by, "by", "category", "group progress by category or stage")
	return cmd
}
