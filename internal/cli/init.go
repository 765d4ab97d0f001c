package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vellum/internal/config"
	"vellum/internal/jsvm"
	"vellum/internal/storage"

	"github.com/spf13/cobra"
)

// InitOptions init 命令选项
type InitOptions struct {
	Force bool
	// Upgrade only refreshes an outdated renderer script.
	Upgrade bool
	// Dir defaults to ~/.vellum.
	Dir string
}

// NewInitCmd 创建 init 命令
func NewInitCmd() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize vellum configuration",
		Long: `Create the configuration directory with a default config.yaml, the data
store, and a copy of the embedded renderer script to customize.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunInit(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "overwrite existing configuration")
	cmd.Flags().BoolVar(&opts.Upgrade, "upgrade", false, "upgrade the renderer script to the embedded version")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "configuration directory (default ~/.vellum)")

	return cmd
}

// DefaultConfig is the configuration init writes.
func DefaultConfig(dir string) *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: config.DefaultPort},
		Log:     config.LogConfig{Level: "info", Format: "console"},
		Storage: config.StorageConfig{Driver: "sqlite", Path: filepath.Join(dir, "data.db")},
		Runtime: config.RuntimeConfig{Timeout: config.DefaultRuntimeTimeout},
		Preview: config.PreviewConfig{
			HighlightBorder: config.DefaultHighlightBorder,
			IdleTimeout:     config.DefaultIdleTimeout,
			ReapSchedule:    config.DefaultReapSchedule,
		},
	}
}

// RunInit 执行初始化
func RunInit(out io.Writer, opts *InitOptions) error {
	configDir := opts.Dir
	if configDir == "" {
		var err error
		if configDir, err = config.DefaultConfigDir(); err != nil {
			return fmt.Errorf("get config dir: %w", err)
		}
	}

	if opts.Upgrade {
		return upgradeRenderer(out, filepath.Join(configDir, jsvm.DefaultScriptName), opts.Force)
	}

	// 检查是否已存在
	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil && !opts.Force {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", configPath)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", configDir, err)
	}

	cfg := DefaultConfig(configDir)
	if err := config.SaveTo(cfg, configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// 初始化数据库
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	db.Close()

	scriptPath := filepath.Join(configDir, jsvm.DefaultScriptName)
	if _, err := os.Stat(scriptPath); err != nil || opts.Force {
		if err := os.WriteFile(scriptPath, []byte(jsvm.DefaultScript), 0644); err != nil {
			fmt.Fprintf(out, "Warning: failed to write renderer script: %v\n", err)
		}
	}

	fmt.Fprintf(out, "Initialized vellum at %s\n", configDir)
	fmt.Fprintf(out, "  Config:   %s\n", configPath)
	fmt.Fprintf(out, "  Database: %s\n", cfg.Storage.Path)
	fmt.Fprintf(out, "  Renderer: %s (set runtime.script to use it)\n", scriptPath)

	return nil
}

func upgradeRenderer(out io.Writer, path string, force bool) error {
	res, err := jsvm.UpgradeScript(path, force)
	if err != nil {
		return fmt.Errorf("upgrade renderer: %w", err)
	}
	if !res.Upgraded {
		fmt.Fprintf(out, "Renderer %s is up to date (%s)\n", path, res.OldVersion)
		return nil
	}
	old := res.OldVersion
	if old == "" {
		old = "none"
	}
	fmt.Fprintf(out, "Upgraded renderer %s: %s -> %s\n", path, old, res.NewVersion)
	if res.BackupPath != "" {
		fmt.Fprintf(out, "  Backup: %s\n", res.BackupPath)
	}
	return nil
}
