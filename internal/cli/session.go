package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewSessionCmd creates the session command.
func NewSessionCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect preview sessions of a running server",
		Long:  `List, view, snapshot and delete the preview sessions of a running vellum server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if root := cmd.Root(); root.PersistentPreRunE != nil {
				if err := root.PersistentPreRunE(cmd, args); err != nil {
					return err
				}
			}
			if serverURL == "" {
				if cliCtx := GetCLIContext(cmd); cliCtx != nil {
					serverURL = cliCtx.ServerURL()
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "vellum server URL (default from config)")

	client := &sessionClient{server: &serverURL, http: &http.Client{Timeout: 30 * time.Second}}
	cmd.AddCommand(newSessionListCmd(client))
	cmd.AddCommand(newSessionShowCmd(client))
	cmd.AddCommand(newSessionSnapshotCmd(client))
	cmd.AddCommand(newSessionDeleteCmd(client))

	return cmd
}

type sessionSummary struct {
	ID        string     `json:"id"`
	Authors   int        `json:"authors"`
	Frames    int        `json:"frames"`
	Ready     bool       `json:"ready"`
	Applied   uint64     `json:"applied"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type sessionDetail struct {
	ID         string          `json:"id"`
	Definition json.RawMessage `json:"definition,omitempty"`
	Styles     string          `json:"styles"`
	Selection  string          `json:"selection,omitempty"`
	Applied    uint64          `json:"applied"`
	Rendered   uint64          `json:"rendered"`
	Authors    int             `json:"authors"`
	Frames     int             `json:"frames"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// sessionClient talks to the gateway's session API.
type sessionClient struct {
	server *string
	http   *http.Client
}

func (c *sessionClient) do(method, path string) (*http.Response, error) {
	base := strings.TrimSuffix(*c.server, "/")
	req, err := http.NewRequest(method, base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w\nIs the server running? Start it with: vellum serve", err)
	}
	return resp, nil
}

// check turns a non-2xx response into an error carrying the server's message.
func check(resp *http.Response, id string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound && id != "" {
		return fmt.Errorf("session not found: %s", id)
	}
	body, _ := io.ReadAll(resp.Body)
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Errorf("server returned %d %s: %s", resp.StatusCode, envelope.Error.Code, envelope.Error.Message)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func newSessionListCmd(c *sessionClient) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.do(http.MethodGet, "/api/sessions")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if err := check(resp, ""); err != nil {
				return err
			}

			var body struct {
				Sessions []sessionSummary `json:"sessions"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(body.Sessions)
			}

			if len(body.Sessions) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAUTHORS\tFRAMES\tREADY\tAPPLIED\tUPDATED")
			for _, s := range body.Sessions {
				updated := "-"
				if s.UpdatedAt != nil {
					updated = s.UpdatedAt.Local().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%d\t%s\n", s.ID, s.Authors, s.Frames, s.Ready, s.Applied, updated)
			}
			w.Flush()

			fmt.Fprintf(out, "\nTotal: %d sessions\n", len(body.Sessions))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func newSessionShowCmd(c *sessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the state of a session's server-side preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			resp, err := c.do(http.MethodGet, "/api/sessions/"+url.PathEscape(id))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if err := check(resp, id); err != nil {
				return err
			}

			var s sessionDetail
			if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
				return fmt.Errorf("failed to decode session: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:   %s\n", s.ID)
			fmt.Fprintf(out, "Created:   %s\n", s.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "Updated:   %s\n", s.UpdatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "Clients:   %d authors, %d frames\n", s.Authors, s.Frames)
			fmt.Fprintf(out, "Applied:   %d (rendered %d)\n", s.Applied, s.Rendered)
			if s.Selection != "" {
				fmt.Fprintf(out, "Selection: %s\n", s.Selection)
			}
			if s.Styles != "" {
				fmt.Fprintf(out, "\nStyles:\n%s\n", s.Styles)
			}
			if len(s.Definition) > 0 {
				fmt.Fprintf(out, "\nDefinition:\n%s\n", s.Definition)
			}
			return nil
		},
	}
}

func newSessionSnapshotCmd(c *sessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <session-id>",
		Short: "Print the HTML of a session's server-side preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			resp, err := c.do(http.MethodGet, "/preview/"+url.PathEscape(id))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if err := check(resp, id); err != nil {
				return err
			}
			_, err = io.Copy(cmd.OutOrStdout(), resp.Body)
			return err
		},
	}
}

func newSessionDeleteCmd(c *sessionClient) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Close a session's server-side preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			resp, err := c.do(http.MethodDelete, "/api/sessions/"+url.PathEscape(id))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if err := check(resp, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", id)
			return nil
		},
	}
}
