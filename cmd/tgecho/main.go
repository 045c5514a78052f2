// Package main is the entry point for the tgecho CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgecho/internal/config"
	"github.com/flemzord/tgecho/internal/security"
	"github.com/flemzord/tgecho/internal/telegram"
	"github.com/flemzord/tgecho/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tgecho",
		Short:         "Telegram webhook that echoes messages back to their chat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringSlice("env-file", []string{".env"}, "Env files loaded before the configuration")
	root.AddCommand(
		versionCmd(),
		serveCmd(),
		getMeCmd(),
		configCmd(),
		initCmd(),
		serviceCmd(),
	)
	return root
}

// runParams collects the flags shared by serve and service.
func runParams(cmd *cobra.Command) app.RunParams {
	cfgPath, _ := cmd.Flags().GetString("config")
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	if cfgPath != "" {
		envFiles = append(envFiles, filepath.Join(filepath.Dir(cfgPath), ".env"))
	}
	return app.RunParams{
		ConfigPath: cfgPath,
		EnvFiles:   envFiles,
		Version:    version,
		Commit:     commit,
		Date:       date,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tgecho %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the webhook until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, runParams(cmd))
		},
	}
}

func getMeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "getme",
		Short: "Check a bot token with the getMe method",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, _ := cmd.Flags().GetString("token")
			if token == "" {
				token = os.Getenv("TGECHO_BOT_TOKEN")
			}
			if token == "" {
				return errors.New("a bot token is required (--token or TGECHO_BOT_TOKEN)")
			}
			apiURL, _ := cmd.Flags().GetString("api-url")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			user, err := telegram.NewClient(apiURL).GetMe(ctx, token)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %d\n", user.ID)
			fmt.Fprintf(out, "username: @%s\n", user.Username)
			fmt.Fprintf(out, "name:     %s\n", user.FirstName)
			fmt.Fprintf(out, "is_bot:   %t\n", user.IsBot)
			return nil
		},
	}
	cmd.Flags().String("token", "", "Bot token (defaults to $TGECHO_BOT_TOKEN)")
	cmd.Flags().String("api-url", telegram.DefaultAPIURL, "Bot API base URL")
	cmd.Flags().Duration("timeout", 10*time.Second, "Request timeout")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			envFiles, _ := cmd.Flags().GetStringSlice("env-file")
			if err := config.LoadDotEnv(envFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK (%d probed bots)\n", len(cfg.Probe.Bots))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := runParams(cmd)
			if err := config.LoadDotEnv(params.EnvFiles...); err != nil {
				return err
			}
			cfg, path, err := config.Resolve(params.ConfigPath)
			if err != nil {
				return err
			}
			out, err := redactedYAML(cfg)
			if err != nil {
				return err
			}
			if path == "" {
				path = "defaults"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n%s", path, out)
			return nil
		},
	})
	return cmd
}

// redactedYAML renders cfg with every secret-looking value masked.
func redactedYAML(cfg *config.Config) ([]byte, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	security.NewRedactor().RedactMap(doc)
	return yaml.Marshal(doc)
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage tgecho as a system service",
	}
	for _, action := range app.ControlActions {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("Run %q on the system service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := app.NewService(absParams(cmd))
				if err != nil {
					return err
				}
				if err := app.Control(s, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: done\n", action)
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the system service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.NewService(absParams(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", app.ServiceName, app.StatusText(s.Status()))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.NewService(runParams(cmd))
			if err != nil {
				return err
			}
			return s.Run()
		},
	})
	return cmd
}

// absParams resolves the config path so the installed service does not
// depend on the working directory it was installed from.
func absParams(cmd *cobra.Command) app.RunParams {
	params := runParams(cmd)
	if params.ConfigPath != "" {
		if abs, err := filepath.Abs(params.ConfigPath); err == nil {
			params.ConfigPath = abs
		}
	}
	return params
}
