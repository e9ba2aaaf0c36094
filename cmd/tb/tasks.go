package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/app"
	"taskboard/internal/controller"
	"taskboard/internal/domain"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskEditCmd())
	cmd.AddCommand(taskToggleCmd())
	cmd.AddCommand(taskDeleteCmd())
	return cmd
}

func taskListCmd() *cobra.Command {
	var search, status, priority string
	var category int64
	var retries int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks matching the filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *app.Client) error {
				f := controller.TaskFilter{Search: search, Status: controller.StatusFilter(status)}
				prio, err := controller.ParsePriorityFilter(priority)
				if err != nil {
					return err
				}
				f.Priority = prio
				if category > 0 {
					f.CategoryID = &category
				}
				board := c.TaskBoard()
				if err := board.SetFilter(f); err != nil {
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
						fmt.Println("No tasks match the current filters.")
					} else {
						fmt.Println("No tasks yet. Add one with: tb task add <title>")
					}
					return nil
				}
				renderTasks(snap)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match title or description")
	cmd.Flags().StringVar(&status, "status", "all", "all, active or completed")
	cmd.Flags().StringVar(&priority, "priority", "all", "all or a priority")
	cmd.Flags().Int64Var(&category, "category", 0, "category id")
	cmd.Flags().IntVar(&retries, "retries", 2, "retry a failed load this many times")
	return cmd
}

func renderTasks(snap controller.TaskSnapshot) {
	names := map[int64]string{}
	for _, c := range snap.Categories {
		names[c.ID] = c.Name
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "Done", "Title", "Priority", "Category", "Due"})
	for _, t := range snap.Visible {
		done := ""
		if t.Completed {
			done = "✓"
		}
		cat := ""
		if t.CategoryID != nil {
			cat = names[*t.CategoryID]
		}
		tw.AppendRow(table.Row{t.ID, done, t.Title, t.Priority, cat, formatDate(t.DueDate)})
	}
	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d active, %d completed", len(snap.Active), len(snap.Completed))})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignCenter}})
	tw.Render()
}

func taskAddCmd() *cobra.Command {
	var in domain.TaskInput
	var priority, due string
	var category int64
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = strings.Join(args, " ")
			if priority != "" {
				p, err := domain.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			d, err := parseDate(due)
			if err != nil {
				return err
			}
			in.DueDate = d
			if category > 0 {
				in.CategoryID = &category
			}
			return withClient(func(c *app.Client) error {
				t, err := c.TaskBoard().CreateTask(cmd.Context(), in)
				if err != nil {
					return err
				}
				printNotices(c)
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Printf("#%d %s\n", t.ID, t.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium, normal or high (default medium)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&category, "category", 0, "category id")
	return cmd
}

func taskEditCmd() *cobra.Command {
	var title, description, priority, due string
	var category int64
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update task fields; --due none and --category 0 clear them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var u domain.TaskUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				u.Title = domain.Set(title)
			}
			if flags.Changed("description") {
				u.Description = domain.Set(description)
			}
			if flags.Changed("priority") {
				p, err := domain.ParsePriority(priority)
				if err != nil {
					return err
				}
				u.Priority = domain.Set(p)
			}
			if flags.Changed("due") {
				d, err := parseDate(due)
				if err != nil {
					return err
				}
				u.DueDate = domain.SetPtr(d)
			}
			if flags.Changed("category") {
				if category > 0 {
					u.CategoryID = domain.Set(category)
				} else {
					u.CategoryID = domain.Clear[int64]()
				}
			}
			return withClient(func(c *app.Client) error {
				t, err := c.TaskBoard().UpdateTask(cmd.Context(), id, u)
				if err != nil {
					return err
				}
				printNotices(c)
				if viper.GetBool("json") {
					return printJSON(t)
				}
				fmt.Printf("#%d %s\n", t.ID, t.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD) or none")
	cmd.Flags().Int64Var(&category, "category", 0, "category id, 0 to clear")
	return cmd
}

func taskToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "Flip a task between completed and active",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *app.Client) error {
				board := c.TaskBoard()
				if err := board.Load(cmd.Context()); err != nil {
					return err
				}
				t, err := board.ToggleComplete(cmd.Context(), id)
				if err != nil {
					return err
				}
				printNotices(c)
				if viper.GetBool("json") {
					return printJSON(t)
				}
				return nil
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(func(c *app.Client) error {
				if err := c.TaskBoard().DeleteTask(cmd.Context(), id); err != nil {
					return err
				}
				printNotices(c)
				return nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseDate accepts YYYY-MM-DD or RFC3339. Empty and "none" mean no date.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
