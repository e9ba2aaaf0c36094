package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/notify"
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "tb",
	Short: "Taskboard CLI",
	Long: `Taskboard keeps tasks, projects and categories on a backend and mirrors them locally.
- Tasks: a title, optional description, due date and category, a priority and a completion flag.
- Categories: named, colored groups of tasks with a task count.
- Projects: named efforts with a status, dates and tags.
- Board: 'tb board' opens the interactive view; the list commands print the same filtered view.
- Backend: 'tb serve' runs the reference server on a sqlite database in the workspace.
Configuration comes from taskboard.yml, TASKBOARD_* environment variables (.env is read) and flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetBool("debug"))
		if err != nil {
			return err
		}
		logger = l
		zap.ReplaceGlobals(l)
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	_ = godotenv.Load(".env")
	viper.SetEnvPrefix("TASKBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory (config file and server data)")
	flags.Bool("json", false, "output JSON")
	flags.Bool("debug", false, "verbose development logging")
	flags.String("base-url", "", "backend base URL")
	flags.String("token", "", "bearer token for the backend")
	flags.String("toggle-policy", "", "how toggling learns the current state: refresh or local")
	flags.String("lang", "", "message language: en or fr")
	_ = viper.BindPFlag("workspace", flags.Lookup("workspace"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("client.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("client.token", flags.Lookup("token"))
	_ = viper.BindPFlag("board.toggle_policy", flags.Lookup("toggle-policy"))
	_ = viper.BindPFlag("board.language", flags.Lookup("lang"))
}

func registerCommands() {
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(categoryCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(initConfigCmd())
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func newServerLogger() (*zap.Logger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

// loadConfig reads taskboard.yml from the workspace and applies environment and
// flag overrides on top.
func loadConfig() (*config.Config, error) {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	strs := map[string]*string{
		"client.base_url":     &cfg.Client.BaseURL,
		"client.token":        &cfg.Client.Token,
		"server.addr":         &cfg.Server.Addr,
		"server.base_path":    &cfg.Server.BasePath,
		"server.workspace":    &cfg.Server.Workspace,
		"server.jwt_secret":   &cfg.Server.JWTSecret,
		"board.toggle_policy": &cfg.Board.TogglePolicy,
		"board.language":      &cfg.Board.Language,
	}
	for k, dst := range strs {
		if viper.IsSet(k) && viper.GetString(k) != "" {
			*dst = viper.GetString(k)
		}
	}
	durs := map[string]*time.Duration{
		"client.timeout":       &cfg.Client.Timeout,
		"server.recount_every": &cfg.Server.RecountEvery,
	}
	for k, dst := range durs {
		if viper.IsSet(k) {
			*dst = viper.GetDuration(k)
		}
	}
	if viper.IsSet("board.page_size") {
		cfg.Board.PageSize = viper.GetInt("board.page_size")
	}
	if !viper.IsSet("server.workspace") && (cfg.Server.Workspace == "" || cfg.Server.Workspace == ".") {
		cfg.Server.Workspace = workspace
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withClient(fn func(*app.Client) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := app.NewClient(cfg, logger)
	if err != nil {
		return err
	}
	return fn(c)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printNotices writes the success notifications collected during a command.
// Failures reach the user as the command error.
func printNotices(c *app.Client) {
	for _, n := range c.Notices.List() {
		if n.Level != notify.LevelError {
			fmt.Println(n.Text)
		}
	}
	c.Notices.Clear()
}

// loadWithRetry loads a board, reporting each failure and retrying up to
// retries more times with a growing pause.
func loadWithRetry(ctx context.Context, c *app.Client, retries int, load func(context.Context) error) error {
	wait := 500 * time.Millisecond
	for attempt := 0; ; attempt++ {
		err := load(ctx)
		if err == nil {
			return nil
		}
		fmt.Fprintln(os.Stderr, c.Catalog.Text(notify.LoadFailed, map[string]any{"Reason": notify.Message(err)}))
		if attempt >= retries || ctx.Err() != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "retrying in %s (%d/%d)\n", wait, attempt+1, retries)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
}
