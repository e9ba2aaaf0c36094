package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/app"
	"taskboard/internal/domain"
)

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectAddCmd())
	cmd.AddCommand(projectEditCmd())
	cmd.AddCommand(projectDeleteCmd())
	return cmd
}

func projectListCmd() *cobra.Command {
	var search, status string
	var retries int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects, most recently modified first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *app.Client) error {
				board := c.ProjectBoard()
				board.SetSearch(search)
				if err := board.SetStatusFilter(status); err != nil {
					return err
				}
				if err := loadWithRetry(cmd.Context(), c, retries, board.Load); err != nil {
					return err
				}
				snap := board.Snapshot()
				if viper.GetBool("json") {
					return printJSON(snap.Visible)
				}
				if len(snap.Visible) == 0 {
					if snap.FilterActive {
						fmt.Println("No projects match the current filters.")
					} else {
						fmt.Println("No projects yet. Add one with: tb project add <name>")
					}
					return nil
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.SetStyle(table.StyleLight)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Start", "End", "Tags", "Modified"})
				for _, p := range snap.Visible {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, formatDate(p.StartDate), formatDate(p.EndDate),
						strings.Join(p.Tags, ", "), p.ModifiedOn.Local().Format("2006-01-02 15:04")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match name, description or tags")
	cmd.Flags().StringVar(&status, "status", "all", "all or a project status")
	cmd.Flags().IntVar(&retries, "retries", 2, "retry a failed load this many times")
	return cmd
}

func projectAddCmd() *cobra.Command {
	var in domain.ProjectInput
	var start, end, status, tags string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.Join(args, " ")
			var err error
			if in.StartDate, err = parseDate(start); err != nil {
				return err
			}
			if in.EndDate, err = parseDate(end); err != nil {
				return err
			}
			if status != "" {
				if in.Status, err = domain.ParseProjectStatus(status); err != nil {
					return err
				}
			}
			in.Tags = domain.ParseTags(tags)
			return withClient(func(c *app.Client) error {
				p, err := c.ProjectBoard().Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				printNotices(c)
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("#%d %s (%s)\n", p.ID, p.Name, p.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "status (default Not Started)")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	return cmd
}

func projectEditCmd() *cobra.Command {
	var name, description, start, end, status, tags string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update project fields; --start none and --end none clear dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var u domain.ProjectUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = domain.Set(name)
			}
			if flags.Changed("description") {
				u.Description = domain.Set(description)
			}
			if flags.Changed("start") {
				d, err := parseDate(start)
				if err != nil {
					return err
				}
				u.StartDate = domain.SetPtr(d)
			}
			if flags.Changed("end") {
				d, err := parseDate(end)
				if err != nil {
					return err
				}
				u.EndDate = domain.SetPtr(d)
			}
			if flags.Changed("status") {
				s, err := domain.ParseProjectStatus(status)
				if err != nil {
					return err
				}
				u.Status = domain.Set(s)
			}
			if flags.Changed("tags") {
				u.Tags = domain.Set(domain.ParseTags(tags))
			}
			return withClient(func(c *app.Client) error {
				board := c.ProjectBoard()
				// The board checks the merged date range against the loaded record.
				if err := board.Load(cmd.Context()); err != nil {
					return err
				}
				p, err := board.Update(cmd.Context(), id, u)
				if err != nil {
					return err
				}
				printNotices(c)
				if viper.GetBool("json") {
					return printJSON(p)
				}
				fmt.Printf("#%d %s (%s)\n", p.ID, p.Name, p.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD) or none")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD) or none")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *app.Client) error {
				if err := c.ProjectBoard().Delete(cmd.Context(), id); err != nil {
					return err
				}
				printNotices(c)
				return nil
			})
		},
	}
}
