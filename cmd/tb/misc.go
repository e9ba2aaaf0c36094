package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/events"
	"taskboard/internal/records"
	"taskboard/internal/server"
	"taskboard/internal/tui"
)

func boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive task board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *app.Client) error {
				return tui.Run(cmd.Context(), c.TaskBoard(), c.Notices)
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var recount time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the reference backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("base-path") {
				cfg.Server.BasePath = basePath
			}
			if cmd.Flags().Changed("recount-every") {
				cfg.Server.RecountEvery = recount
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			// Request logs are part of the server's output.
			if !viper.GetBool("debug") {
				if l, err := newServerLogger(); err == nil {
					logger = l
				}
			}
			b, err := app.OpenBackend(cmd.Context(), cfg.Server, logger)
			if err != nil {
				return err
			}
			defer b.Close()
			auth := "disabled"
			if cfg.Server.JWTSecret != "" {
				auth = "bearer"
			}
			fmt.Printf("Serving taskboard API on http://%s%s (OpenAPI at %s/openapi.json, auth %s)\n",
				cfg.Server.Addr, cfg.Server.BasePath, cfg.Server.BasePath, auth)
			return b.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().DurationVar(&recount, "recount-every", 5*time.Minute, "category recount interval, 0 to disable")
	return cmd
}

func logCmd() *cobra.Command {
	var f events.Filter
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show change events from the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecords(cmd.Context(), func(ctx context.Context, r *records.Repo) error {
				evts, err := events.List(ctx, r.DB, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evts)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.SetStyle(table.StyleLight)
				tw.AppendHeader(table.Row{"#", "Time", "Type", "Table", "Record", "Actor"})
				for _, e := range evts {
					tw.AppendRow(table.Row{e.ID, e.TS.Local().Format(time.DateTime), e.Type, e.Table, e.RecordID, e.Actor})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Table, "table", "", "table filter")
	cmd.Flags().Int64Var(&f.RecordID, "record", 0, "record id filter")
	cmd.Flags().Int64Var(&f.AfterID, "after", 0, "only events after this event id")
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	return cmd
}

func tokenCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	var save bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with server.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := server.IssueToken(cfg.Server.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			if save {
				return saveEnvValue(".env", "TASKBOARD_CLIENT_TOKEN", token)
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "local-user", "actor recorded on events")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.Flags().BoolVar(&save, "save", false, "store the token in .env instead of printing it")
	return cmd
}

func initConfigCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a default taskboard.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// saveEnvValue sets key in a dotenv file, keeping the other entries.
func saveEnvValue(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		env = map[string]string{}
	}
	env[key] = value
	if err := godotenv.Write(env, path); err != nil {
		return err
	}
	fmt.Printf("saved %s to %s\n", key, path)
	return nil
}
