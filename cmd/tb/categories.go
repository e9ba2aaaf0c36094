package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/app"
	"taskboard/internal/db"
	"taskboard/internal/domain"
	"taskboard/internal/migrate"
	"taskboard/internal/records"
)

func categoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}
	cmd.AddCommand(categoryListCmd())
	cmd.AddCommand(categoryAddCmd())
	cmd.AddCommand(categoryEditCmd())
	cmd.AddCommand(categoryDeleteCmd())
	cmd.AddCommand(categorySyncCmd())
	cmd.AddCommand(categoryRecountCmd())
	return cmd
}

func categoryListCmd() *cobra.Command {
	var retries int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories with task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *app.Client) error {
				board := c.TaskBoard()
				if err := loadWithRetry(cmd.Context(), c, retries, board.Load); err != nil {
					return err
				}
				snap := board.Snapshot()
				if viper.GetBool("json") {
					return printJSON(map[string]any{"categories": snap.Categories, "uncategorized": snap.Uncategorized})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.SetStyle(table.StyleLight)
				tw.AppendHeader(table.Row{"ID", "Name", "Color", "Icon", "Tasks"})
				for _, cat := range snap.Categories {
					tw.AppendRow(table.Row{cat.ID, cat.Name, cat.Color, cat.Icon, cat.TaskCount})
				}
				tw.AppendFooter(table.Row{"", "Uncategorized", "", "", snap.Uncategorized})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&retries, "retries", 2, "retry a failed load this many times")
	return cmd
}

func categoryAddCmd() *cobra.Command {
	var in domain.CategoryInput
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.Join(args, " ")
			return withClient(func(c *app.Client) error {
				cat, err := c.TaskBoard().CreateCategory(cmd.Context(), in)
				if err != nil {
					return err
				}
				printNotices(c)
				if viper.GetBool("json") {
					return printJSON(cat)
				}
				fmt.Printf("#%d %s\n", cat.ID, cat.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Color, "color", "", "color, e.g. #3b82f6")
	cmd.Flags().StringVar(&in.Icon, "icon", "", "icon name")
	return cmd
}

func categoryEditCmd() *cobra.Command {
	var name, color, icon string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var u domain.CategoryUpdate
			if cmd.Flags().Changed("name") {
				u.Name = domain.Set(name)
			}
			if cmd.Flags().Changed("color") {
				u.Color = domain.Set(color)
			}
			if cmd.Flags().Changed("icon") {
				u.Icon = domain.Set(icon)
			}
			return withClient(func(c *app.Client) error {
				cat, err := c.TaskBoard().UpdateCategory(cmd.Context(), id, u)
				if err != nil {
					return err
				}
				printNotices(c)
				if viper.GetBool("json") {
					return printJSON(cat)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&color, "color", "", "color")
	cmd.Flags().StringVar(&icon, "icon", "", "icon")
	return cmd
}

func categoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category; its tasks become uncategorized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *app.Client) error {
				if err := c.TaskBoard().DeleteCategory(cmd.Context(), id); err != nil {
					return err
				}
				printNotices(c)
				return nil
			})
		},
	}
}

func categorySyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Write the task counts seen by the board back to the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *app.Client) error {
				board := c.TaskBoard()
				if err := board.Load(cmd.Context()); err != nil {
					return err
				}
				n, err := board.SyncCategoryCounts(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("%d categories updated\n", n)
				return nil
			})
		},
	}
}

func categoryRecountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount",
		Short: "Recompute task counts directly in the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecords(cmd.Context(), func(ctx context.Context, r *records.Repo) error {
				n, err := r.RecountCategories(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("%d categories updated\n", n)
				return nil
			})
		},
	}
}

// withRecords opens the workspace database the way tb serve does.
func withRecords(ctx context.Context, fn func(context.Context, *records.Repo) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: cfg.Server.Workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		return err
	}
	return fn(ctx, records.New(conn, logger))
}
