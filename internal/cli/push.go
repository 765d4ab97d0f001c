package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vellum/internal/bridge"
	"vellum/internal/watch"
)

type pushOptions struct {
	messageFlags
	Server  string
	Session string
	Watch   bool
	Wait    time.Duration
}

// NewPushCmd creates the push command.
func NewPushCmd() *cobra.Command {
	opts := &pushOptions{}

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send a preview message to a session",
		Long: `Send a definition, stylesheet and selection to every frame of a session.

Definition files may be JSON or YAML. Without --session a new session is
created and its id printed. With --watch the message is sent again whenever
one of the files changes, until interrupted.`,
		Example: `  # Push a definition and highlight a component
  vellum push --session demo --definition app.yaml --styles app.css --select button:b1

  # Keep the preview in sync while editing
  vellum push --session demo --definition app.json --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := GetCLIContext(cmd)
			if err := requireContext(cliCtx); err != nil {
				return err
			}
			if opts.Server == "" {
				opts.Server = cliCtx.ServerURL()
			}
			return runPush(cmd, cliCtx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Server, "server", "", "vellum server URL (default from config)")
	cmd.Flags().StringVarP(&opts.Session, "session", "s", "", "session id (created when empty)")
	cmd.Flags().StringVarP(&opts.Definition, "definition", "d", "", "definition file (JSON or YAML)")
	cmd.Flags().StringVar(&opts.Styles, "styles", "", "stylesheet file")
	cmd.Flags().StringVar(&opts.Selection, "select", "", "selected component as type:id")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "resend when files change")
	cmd.Flags().DurationVar(&opts.Wait, "wait", 5*time.Second, "how long to wait for a ready frame before the first send")

	return cmd
}

func runPush(cmd *cobra.Command, cliCtx *CLIContext, opts *pushOptions) error {
	log := cliCtx.Log()

	msg, err := opts.Build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := bridge.Dial(ctx, opts.Server, opts.Session, bridge.RoleAuthor)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w\nIs the server running? Start it with: vellum serve", err)
	}
	defer conn.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "session: %s\n", conn.Session())

	if opts.Wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, opts.Wait)
		err := conn.WaitReady(waitCtx)
		cancel()
		if err != nil {
			log.Warn().Str("session", conn.Session()).Msg("No frame is ready, sending anyway")
		}
	}

	if err := conn.Send(ctx, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	log.Info().Str("session", conn.Session()).Msg("Preview message sent")

	if !opts.Watch {
		return nil
	}

	files := opts.Files()
	if len(files) == 0 {
		return errors.New("--watch needs --definition or --styles")
	}

	w, err := watch.New(func(path string) {
		msg, err := opts.Build()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Not sending invalid input")
			return
		}
		if err := conn.Send(ctx, msg); err != nil {
			log.Error().Err(err).Msg("Failed to send preview message")
			return
		}
		log.Info().Str("path", path).Msg("Preview message resent")
	}, files...)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	log.Info().Strs("files", files).Msg("Watching for changes, press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		return nil
	case <-conn.Done():
		return errors.New("connection to server closed")
	}
}
