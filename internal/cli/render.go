package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vellum/internal/bridge"
	"vellum/internal/config"
	"vellum/internal/frame"
	"vellum/internal/headless"
)

type renderOptions struct {
	messageFlags
	Runtime   string
	NoRuntime bool
	Out       string
	Persist   bool
}

// renderNamespace is the localStorage namespace of persisted renders.
const renderNamespace = "render"

// NewRenderCmd creates the render command.
func NewRenderCmd() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a preview headlessly and print the HTML",
		Long: `Apply one preview message to a headless frame and print the resulting
document. The embedded renderer draws the definition unless --runtime names
another script or --no-runtime disables rendering.`,
		Example: `  vellum render --definition app.yaml --styles app.css --select card:c1 --out preview.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if err := requireContext(cliCtx); err != nil {
				return err
			}
			return runRender(cmd, cliCtx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Definition, "definition", "d", "", "definition file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.Styles, "styles", "", "stylesheet file")
	cmd.Flags().StringVar(&opts.Selection, "select", "", "selected component as type:id")
	cmd.Flags().StringVar(&opts.Runtime, "runtime", "", "renderer script (default from config, else embedded)")
	cmd.Flags().BoolVar(&opts.NoRuntime, "no-runtime", false, "publish the definition without rendering it")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write HTML to file instead of stdout")
	cmd.Flags().BoolVar(&opts.Persist, "persist", false, "keep localStorage in the data store between renders")

	return cmd
}

func runRender(cmd *cobra.Command, cliCtx *CLIContext, opts *renderOptions) error {
	msg, err := opts.Build()
	if err != nil {
		return err
	}

	script := opts.Runtime
	if script == "" {
		script = cliCtx.Config.Runtime.Script
	}
	if script, err = config.ExpandPath(script); err != nil {
		return err
	}

	var store frame.Storage
	if opts.Persist {
		db, err := cliCtx.GetStorage()
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		store = db.LocalStorage(renderNamespace)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := headless.Open(ctx, headless.Options{
		Storage:         store,
		Script:          script,
		NoRuntime:       opts.NoRuntime,
		Timeout:         cliCtx.Config.Runtime.Timeout,
		HighlightBorder: cliCtx.Config.Preview.HighlightBorder,
		Logger:          *cliCtx.Log(),
	})
	if err != nil {
		return err
	}
	defer p.Close()

	if err := bridge.NewPipe(p.Window()).Send(ctx, msg); err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.Out != "" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := p.Render(out); err != nil {
		return err
	}
	if opts.Out == "" {
		fmt.Fprintln(out)
	}
	return nil
}
