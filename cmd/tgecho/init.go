package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/tgecho/internal/config"
	"github.com/flemzord/tgecho/internal/probe"
)

// Secrets collected by the wizard go to the .env file; the YAML only
// references them.
const (
	botTokenVar  = "TGECHO_BOT_TOKEN"
	sentryDSNVar = "TGECHO_SENTRY_DSN"
)

// initAnswers holds the wizard results.
type initAnswers struct {
	Bind      string
	AdminBind string
	Prefix    string
	BotToken  string
	SentryDSN string
	JSONLogs  bool
}

func defaultAnswers() initAnswers {
	cfg := config.Default()
	return initAnswers{
		Bind:      cfg.Gateway.Bind,
		AdminBind: cfg.Gateway.AdminBind,
	}
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a configuration file interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) == 1 {
				path = args[0]
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			answers := defaultAnswers()
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				if err := initForm(&answers).Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return errors.New("init aborted")
					}
					return err
				}
			}

			if err := writeInit(path, answers); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	cmd.Flags().BoolP("yes", "y", false, "Accept the defaults without prompting")
	return cmd
}

func initForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Webhook listen address").
				Value(&a.Bind).
				Validate(validateAddr),
			huh.NewInput().
				Title("Admin listen address").
				Description("Serves /health, /status and /metrics.").
				Value(&a.AdminBind).
				Validate(validateAddr),
			huh.NewInput().
				Title("Webhook path prefix").
				Description("Telegram calls <prefix>/<bot token>. Leave empty for none.").
				Value(&a.Prefix).
				Validate(validatePrefix),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token to health-check").
				Description("Optional. Stored in .env, not in the YAML file.").
				EchoMode(huh.EchoModePassword).
				Value(&a.BotToken),
			huh.NewInput().
				Title("Sentry DSN").
				Description("Optional. Server errors are reported there.").
				Value(&a.SentryDSN),
			huh.NewConfirm().
				Title("JSON logs?").
				Value(&a.JSONLogs),
		),
	)
}

func validateAddr(s string) error {
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	return nil
}

func validatePrefix(s string) error {
	if s != "" && !strings.HasPrefix(s, "/") {
		return errors.New("prefix must start with /")
	}
	return nil
}

// renderInit builds the YAML document and the env file entries for a.
func renderInit(a initAnswers) ([]byte, map[string]string, error) {
	cfg := config.Default()
	cfg.Gateway.Bind = a.Bind
	cfg.Gateway.AdminBind = a.AdminBind
	cfg.Gateway.Prefix = strings.TrimSuffix(a.Prefix, "/")
	if a.JSONLogs {
		cfg.Log.Format = "json"
	}

	env := map[string]string{}
	if token := strings.TrimSpace(a.BotToken); token != "" {
		env[botTokenVar] = token
		cfg.Probe.Bots = []probe.Bot{{Name: "main", Token: "${" + botTokenVar + "}"}}
	}
	if dsn := strings.TrimSpace(a.SentryDSN); dsn != "" {
		env[sentryDSNVar] = dsn
		cfg.Errors.SentryDSN = "${" + sentryDSNVar + ":-}"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, nil, err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, nil, err
	}
	return out, env, nil
}

// writeInit writes the config file and, when there are secrets, a .env
// file next to it.
func writeInit(path string, a initAnswers) error {
	doc, env, err := renderInit(a)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if len(env) == 0 {
		return nil
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	existing, err := godotenv.Read(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", envPath, err)
	}
	if existing == nil {
		existing = map[string]string{}
	}
	for k, v := range env {
		existing[k] = v
	}
	if err := godotenv.Write(existing, envPath); err != nil {
		return fmt.Errorf("writing %s: %w", envPath, err)
	}
	return os.Chmod(envPath, 0o600)
}
