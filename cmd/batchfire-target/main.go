package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/batchfire/internal/target"
)

const envPrefix = "BATCHFIRE_TARGET"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command. Every flag can also be set through a
// BATCHFIRE_TARGET_ environment variable, e.g. BATCHFIRE_TARGET_LISTEN.
func newRootCommand(logOut io.Writer) *cobra.Command {
	var v *viper.Viper

	cmd := &cobra.Command{
		Use:           "batchfire-target",
		Short:         "Mock HTTP target with Prometheus metrics for batchfire runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := optionsFrom(v)
			if err != nil {
				return err
			}
			log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{}))
			slog.SetDefault(log)

			srv, err := target.New(opts, log)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("listen", target.DefaultAddr, "Address to listen on")
	flags.String("payload", "", "YAML or JSON file served as the response body")
	flags.Bool("watch", false, "Reload the payload file when it changes")
	flags.Duration("delay", 0, "Delay added before every response")
	flags.Int("status", 200, "Status code returned by the mock handler")
	flags.Bool("log-requests", false, "Log every served request")

	v = newViper(flags)

	return cmd
}

func newViper(flags *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(flags)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func optionsFrom(v *viper.Viper) (target.Options, error) {
	opts := target.Options{
		Addr:        strings.TrimSpace(v.GetString("listen")),
		PayloadFile: strings.TrimSpace(v.GetString("payload")),
		Watch:       v.GetBool("watch"),
		Delay:       v.GetDuration("delay"),
		Status:      v.GetInt("status"),
		LogRequests: v.GetBool("log-requests"),
	}
	if opts.Watch && opts.PayloadFile == "" {
		return opts, fmt.Errorf("--watch requires --payload")
	}
	return opts, nil
}
