package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/eva/internal/docstore"
	"github.com/sandeepkv93/eva/internal/reminder"
	"github.com/sandeepkv93/eva/internal/schedule"
	"github.com/sandeepkv93/eva/internal/views"
	"github.com/sandeepkv93/eva/internal/watch"
)

func newAgendaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "agenda",
		Short:   "Show every time segment with its tasks",
		GroupID: "plan",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			groups, err := store.AllTasksPerTimeSegment(cmd.Context())
			if err != nil {
				return err
			}
			if md, _ := cmd.Flags().GetBool("markdown"); md {
				fmt.Fprintln(cmd.OutOrStdout(), views.RenderMarkdown(views.AgendaMarkdown(groups)))
				return nil
			}
			tasks := 0
			for _, g := range groups {
				tasks += len(g.Tasks)
			}
			fmt.Fprintln(cmd.OutOrStdout(), views.RenderPage(views.Page{
				Header: "Agenda",
				Body:   views.RenderAgenda(groups),
				Footer: fmt.Sprintf("%d tasks in %d time segments", tasks, len(groups)),
			}))
			return nil
		},
	}
	cmd.Flags().Bool("markdown", false, "Render as markdown")
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Ask the configured scheduler when to work on each task",
		Long: `schedule sends every time segment and its tasks as JSON to the program
named by schedule.command and prints the start times it answers with.`,
		GroupID: "plan",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			scheduled, err := a.schedule(cmd.Context(), store)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), views.RenderPage(views.Page{
				Header: "Schedule",
				Body:   views.ScheduleText(scheduled),
				Status: fmt.Sprintf("%d tasks scheduled", len(scheduled)),
			}))
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print reminders, rescheduling whenever the database changes",
		Long: `watch schedules all tasks, then prints a reminder shortly before each
planned start and at each deadline. Any write to the database, from this
or another eva process, triggers a new schedule. Stop with Ctrl-C.`,
		GroupID: "plan",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd)
		},
	}
}

func (a *app) schedule(ctx context.Context, store *docstore.Store) ([]schedule.Scheduled, error) {
	groups, err := store.AllTasksPerTimeSegment(ctx)
	if err != nil {
		return nil, err
	}
	sched := &schedule.CommandScheduler{
		Command: a.cfg.Schedule.Command,
		Args:    a.cfg.Schedule.Args,
		Logger:  a.logger("[schedule] "),
	}
	scheduled, err := sched.Schedule(ctx, groups)
	if errors.Is(err, schedule.ErrNoScheduler) {
		return nil, fmt.Errorf("%w: set schedule.command in %s or EVA_SCHEDULE_COMMAND", err, a.cfgPath)
	}
	return scheduled, err
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	logger := a.logger("[watch] ")
	debounce := time.Duration(a.cfg.Watch.DebounceMillis) * time.Millisecond
	watcher, err := watch.New(a.cfg.DB.Path, debounce, logger)
	if err != nil {
		return err
	}
	defer watcher.Close()
	lead := time.Duration(a.cfg.Watch.ReminderLeadMinutes) * time.Minute

	engine := reminder.NewEngine(a.cfg.Watch.Buffer)
	engine.Start()
	defer engine.Stop()

	replan := func() error {
		scheduled, err := a.schedule(ctx, store)
		if err != nil {
			return err
		}
		planned := reminder.Plan(scheduled, a.now(), lead)
		logger.Printf("planned %d reminders for %d tasks", len(planned), len(scheduled))
		return engine.Replace(planned)
	}
	if err := replan(); err != nil {
		return err
	}

	watchErr := make(chan error, 1)
	go func() { watchErr <- watcher.Run(ctx) }()

	out := cmd.OutOrStdout()
	changes := watcher.Changes()
	for {
		select {
		case <-ctx.Done():
			<-watchErr
			return nil
		case _, ok := <-changes:
			if !ok {
				return <-watchErr
			}
			// A failed reschedule keeps the previous reminders.
			if err := replan(); err != nil {
				logger.Printf("reschedule: %v", err)
				fmt.Fprintf(cmd.ErrOrStderr(), "eva: reschedule failed: %v\n", err)
			}
		case r := <-engine.C():
			fmt.Fprintln(out, views.RenderReminder(r))
		}
	}
}
