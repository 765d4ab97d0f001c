package cli

import (
	"context"

	"vellum/internal/config"
	"vellum/pkg/logger"

	"github.com/spf13/cobra"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string
	LogFormat  string
	Verbose    bool
	Quiet      bool
}

// contextKey CLI 上下文键
type contextKey struct{}

// 不需要加载配置的命令
var skipContext = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
}

// NewRootCmd 创建根命令
func NewRootCmd() *cobra.Command {
	flags := &GlobalFlags{}

	rootCmd := &cobra.Command{
		Use:   "vellum",
		Short: "Vellum - live preview synchronization",
		Long: `Vellum renders a live preview of a visually authored application and keeps
it in sync with the authoring tool. It relays preview messages to browser
frames over websockets, keeps a server-side headless preview per session and
renders definitions from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipContext[cmd.Name()] {
				return nil
			}
			cliCtx, err := loadContext(flags)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, cliCtx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx := GetCLIContext(cmd); cliCtx != nil {
				return cliCtx.Close()
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "config file path (default $VELLUM_HOME/config.yaml)")
	pf.StringVar(&flags.LogFormat, "log-format", "", "log format override: console, json or auto")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "quiet mode")

	rootCmd.AddCommand(
		NewVersionCmd(),
		NewInitCmd(),
		NewConfigCmd(),
		NewServeCmd(),
		NewPushCmd(),
		NewRenderCmd(),
		NewSessionCmd(),
		NewDoctorCmd(),
	)

	return rootCmd
}

// loadContext 加载配置、初始化 Logger
func loadContext(flags *GlobalFlags) (*CLIContext, error) {
	configPath := flags.ConfigPath
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultConfigPath(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logCfg := logger.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}
	switch {
	case flags.Quiet:
		logCfg.Level = "error"
	case flags.Verbose:
		logCfg.Level = "debug"
	}
	if flags.LogFormat != "" {
		logCfg.Format = flags.LogFormat
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}

	storagePath := cfg.Storage.Path
	if storagePath == "" {
		if storagePath, err = config.DefaultDataPath(); err != nil {
			return nil, err
		}
	}

	return NewCLIContext(cfg, configPath, logger.Get(), storagePath, flags.Verbose, flags.Quiet), nil
}

// GetCLIContext 从命令上下文获取 CLI 上下文
func GetCLIContext(cmd *cobra.Command) *CLIContext {
	ctx := cmd.Context()
	if ctx == nil {
		return nil
	}
	cliCtx, ok := ctx.Value(contextKey{}).(*CLIContext)
	if !ok {
		return nil
	}
	return cliCtx
}
