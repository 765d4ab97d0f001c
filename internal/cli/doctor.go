package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vellum/internal/config"
	"vellum/internal/dom"
	"vellum/internal/frame"
	"vellum/internal/jsvm"
	"vellum/internal/storage/migrations"
)

// NewDoctorCmd creates the doctor command.
func NewDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the vellum installation",
		Long: `Run diagnostic checks on your vellum installation.

This command checks:
- Configuration file validity
- Data store accessibility and schema version
- Renderer script
- Server status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if err := requireContext(cliCtx); err != nil {
				return err
			}
			results := runChecks(cmd.Context(), cliCtx)
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

type checkResult struct {
	name    string
	status  string
	message string
}

func runChecks(ctx context.Context, cliCtx *CLIContext) []checkResult {
	if ctx == nil {
		ctx = context.Background()
	}
	return []checkResult{
		checkSystemInfo(),
		checkConfigFile(cliCtx.ConfigPath, cliCtx.Config),
		checkDataStore(cliCtx),
		checkRenderer(ctx, cliCtx.Config),
		checkServer(cliCtx.ServerURL()),
	}
}

func printResults(out io.Writer, results []checkResult) {
	fmt.Fprintln(out, "Vellum Doctor")
	fmt.Fprintln(out, "=============")
	fmt.Fprintln(out)

	hasErrors, hasWarnings := false, false
	for _, r := range results {
		icon := "✓"
		switch r.status {
		case statusWarning:
			icon = "!"
			hasWarnings = true
		case statusError:
			icon = "✗"
			hasErrors = true
		}
		fmt.Fprintf(out, "%s %s: %s\n", icon, r.name, r.message)
	}

	fmt.Fprintln(out)
	switch {
	case hasErrors:
		fmt.Fprintln(out, "Some checks failed. Please address the issues above.")
	case hasWarnings:
		fmt.Fprintln(out, "Some warnings detected. Your setup should work but may have issues.")
	default:
		fmt.Fprintln(out, "All checks passed.")
	}
}

func checkSystemInfo() checkResult {
	return checkResult{
		name:    "System",
		status:  statusOK,
		message: fmt.Sprintf("Go %s on %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	}
}

func checkConfigFile(path string, cfg *config.Config) checkResult {
	const name = "Config File"
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return checkResult{name, statusError, err.Error()}
	}
	if _, err := os.Stat(expanded); err != nil {
		return checkResult{name, statusWarning, fmt.Sprintf("%s not found, using defaults (run 'vellum init')", expanded)}
	}
	if cfg != nil {
		if err := config.Validate(cfg); err != nil {
			return checkResult{name, statusError, fmt.Sprintf("%s: %v", expanded, err)}
		}
	}
	return checkResult{name, statusOK, expanded}
}

func checkDataStore(cliCtx *CLIContext) checkResult {
	const name = "Data Store"
	switch cliCtx.Config.Storage.Driver {
	case "none", "memory":
		return checkResult{name, statusOK, "driver " + cliCtx.Config.Storage.Driver + ", nothing persisted"}
	}

	db, err := cliCtx.GetStorage()
	if err != nil {
		return checkResult{name, statusError, fmt.Sprintf("cannot open %s: %v", cliCtx.StoragePath, err)}
	}
	version, err := migrations.Version(db.DB)
	if err != nil {
		return checkResult{name, statusError, err.Error()}
	}
	latest, err := migrations.Latest()
	if err != nil {
		return checkResult{name, statusError, err.Error()}
	}
	namespaces, err := db.Namespaces()
	if err != nil {
		return checkResult{name, statusError, err.Error()}
	}
	msg := fmt.Sprintf("%s (schema v%d, %d namespaces)", db.Path(), version, len(namespaces))
	if version != latest {
		return checkResult{name, statusWarning, msg + fmt.Sprintf(", latest schema is v%d", latest)}
	}
	return checkResult{name, statusOK, msg}
}

func checkRenderer(ctx context.Context, cfg *config.Config) checkResult {
	const name = "Renderer"
	rt := jsvm.New(dom.New(), frame.NewSlot(), jsvm.Config{Timeout: cfg.Runtime.Timeout})
	defer rt.Close()

	script, err := config.ExpandPath(cfg.Runtime.Script)
	if err != nil {
		return checkResult{name, statusError, err.Error()}
	}
	if script == "" {
		if err := rt.LoadDefault(ctx); err != nil {
			return checkResult{name, statusError, err.Error()}
		}
		return checkResult{name, statusOK, "embedded " + jsvm.DefaultScriptName}
	}
	if err := rt.LoadFile(ctx, script); err != nil {
		return checkResult{name, statusError, err.Error()}
	}
	if _, ok := rt.EntryPoint(); !ok {
		return checkResult{name, statusWarning, script + " defines no " + jsvm.EntryPointName + " function"}
	}
	// Only copies of the embedded renderer carry a version tag.
	if info, err := jsvm.CheckScript(script); err == nil && info.LocalVersion != "" && info.UpdateAvailable {
		return checkResult{name, statusWarning, fmt.Sprintf("%s is version %s, %s is available (run vellum init --upgrade)",
			script, info.LocalVersion, info.EmbedVersion)}
	}
	return checkResult{name, statusOK, script}
}

func checkServer(serverURL string) checkResult {
	const name = "Server"
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimSuffix(serverURL, "/") + "/health")
	if err != nil {
		return checkResult{name, statusWarning, "not running at " + serverURL}
	}
	defer resp.Body.Close()

	var health struct {
		Version  string `json:"version"`
		Uptime   int64  `json:"uptime"`
		Sessions int    `json:"sessions"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&health) != nil {
		return checkResult{name, statusError, fmt.Sprintf("unexpected response from %s (status %d)", serverURL, resp.StatusCode)}
	}
	return checkResult{name, statusOK, fmt.Sprintf("%s at %s, up %s, %d sessions",
		health.Version, serverURL, time.Duration(health.Uptime)*time.Second, health.Sessions)}
}
