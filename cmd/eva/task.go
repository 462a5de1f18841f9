package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/eva/internal/datetime"
	"github.com/sandeepkv93/eva/internal/docstore"
	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/views"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Short:   "Add, list, edit and remove tasks",
		GroupID: "data",
	}
	cmd.AddCommand(newTaskAddCmd(a), newTaskListCmd(a), newTaskEditCmd(a), newTaskRmCmd(a))
	return cmd
}

func addTaskFlags(cmd *cobra.Command) {
	cmd.Flags().String("deadline", "tomorrow", "Deadline: today, tomorrow, next-week, next-month, end-of-month, YYYY-MM-DD, 'YYYY-MM-DD HH:MM' or RFC 3339")
	cmd.Flags().Duration("duration", time.Hour, "Time the task takes")
	cmd.Flags().Int("importance", 5, "Importance, higher first")
	cmd.Flags().Uint64("segment", uint64(docstore.DefaultTimeSegmentID), "Time segment id")
}

func newTaskAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: "Add a task",
		Example: `  eva task add "Write the quarterly report" --deadline 2026-03-31 --duration 3h --importance 8
  eva task add "Call the bank" --deadline tomorrow --segment 1739871234567`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := model.Task{Content: strings.Join(args, " ")}
			if err := applyTaskFlags(cmd, &task, true); err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			added, err := store.AddTask(cmd.Context(), task)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", views.TaskLine(added))
			return nil
		},
	}
	addTaskFlags(cmd)
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			var tasks []docstore.Doc[model.Task]
			if cmd.Flags().Changed("segment") {
				id, _ := cmd.Flags().GetUint64("segment")
				tasks, err = store.TasksForTimeSegment(cmd.Context(), model.ID(id))
			} else {
				tasks, err = store.AllTasks(cmd.Context())
			}
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no tasks)")
				return nil
			}
			for _, task := range tasks {
				fmt.Fprintln(cmd.OutOrStdout(), views.TaskLine(task))
			}
			return nil
		},
	}
	cmd.Flags().Uint64("segment", 0, "Only tasks of this time segment")
	return cmd
}

func newTaskEditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task; only the given flags are updated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			current, err := store.GetTask(cmd.Context(), id)
			if err != nil {
				return err
			}
			task := current.Body
			if content, _ := cmd.Flags().GetString("content"); cmd.Flags().Changed("content") {
				task.Content = content
			}
			if err := applyTaskFlags(cmd, &task, false); err != nil {
				return err
			}
			updated, err := store.UpdateTask(cmd.Context(), id, task)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", views.TaskLine(updated))
			return nil
		},
	}
	addTaskFlags(cmd)
	cmd.Flags().String("content", "", "New content")
	return cmd
}

func newTaskRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove tasks",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			for _, arg := range args {
				id, err := model.ParseID(arg)
				if err != nil {
					return err
				}
				if err := store.DeleteTask(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s\n", id)
			}
			return nil
		},
	}
}

// applyTaskFlags copies the task flags onto task: all of them when all is
// set, otherwise only the ones given on the command line.
func applyTaskFlags(cmd *cobra.Command, task *model.Task, all bool) error {
	flags := cmd.Flags()
	if all || flags.Changed("deadline") {
		raw, _ := flags.GetString("deadline")
		deadline, err := parseDeadline(raw, time.Local)
		if err != nil {
			return err
		}
		task.Deadline = deadline
	}
	if all || flags.Changed("duration") {
		task.Duration, _ = flags.GetDuration("duration")
	}
	if all || flags.Changed("importance") {
		task.Importance, _ = flags.GetInt("importance")
	}
	if all || flags.Changed("segment") {
		id, _ := flags.GetUint64("segment")
		task.TimeSegmentID = model.ID(id)
	}
	return nil
}

// parseDeadline understands a few relative words; a bare date means the end
// of that day.
func parseDeadline(raw string, loc *time.Location) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "today":
		return datetime.EndOfDay(datetime.Today()), nil
	case "tomorrow":
		return datetime.EndOfDay(datetime.Tomorrow()), nil
	case "next-week":
		return datetime.EndOfDay(datetime.InNWeeks(1)), nil
	case "next-month":
		return datetime.EndOfDay(datetime.InNMonths(1)), nil
	case "end-of-month":
		return datetime.EndOfDay(datetime.LastDayOfMonth()), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", raw, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return datetime.EndOfDay(t), nil
	}
	return time.Time{}, fmt.Errorf("cannot read deadline %q", raw)
}
