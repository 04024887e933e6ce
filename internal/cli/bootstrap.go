package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type bootstrapResult struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AccessKey string    `json:"access_key"`
	CreatedAt time.Time `json:"created_at"`
}

func newBootstrapCommand(e *env) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the admin service token on a running server",
		Long: `Bootstrap asks a running server to mint the one and only admin service token.
The access key is printed once and cannot be recovered later.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := serverURL
			if base == "" {
				base = e.cfg.ServerURL()
			}
			res, err := requestBootstrap(cmd.Context(), http.DefaultClient, base)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Admin service token created:")
			fmt.Fprintf(out, "  ID:        %s\n", res.ID)
			fmt.Fprintf(out, "  Name:      %s\n", res.Name)
			fmt.Fprintf(out, "  AccessKey: %s\n", res.AccessKey)
			fmt.Fprintln(out, "Store the access key securely; it will not be shown again.")
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", "", "Base URL of the running server (default http://localhost:<port>)")
	return cmd
}

func requestBootstrap(ctx context.Context, client *http.Client, base string) (*bootstrapResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	url := strings.TrimRight(base, "/") + "/api/v1/st/bootstrap"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bootstrap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("bootstrap failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var res bootstrapResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode bootstrap response: %w", err)
	}
	if res.AccessKey == "" {
		return nil, fmt.Errorf("bootstrap response carried no access key")
	}
	return &res, nil
}
