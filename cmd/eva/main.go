package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sandeepkv93/eva/internal/config"
	"github.com/sandeepkv93/eva/internal/datetime"
	"github.com/sandeepkv93/eva/internal/docstore"
	"github.com/sandeepkv93/eva/internal/storage"
)

// app carries what every command needs once flags and config are read.
type app struct {
	cfgPath string
	dbPath  string
	verbose bool

	cfg     config.Config
	logOut  io.Writer
	closers []io.Closer
	now     func() time.Time
}

func main() {
	a := &app{now: time.Now}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "eva: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "eva",
		Short: "Keep tasks and the time segments they are scheduled in",
		Long: `eva keeps tasks and recurring time segments in a local, versioned
document store and hands them to an external scheduler.

Every task belongs to a time segment: a named set of weekly (or other
period) availability windows. The store is migrated to the current schema
on every start.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", config.DefaultPath(), "Config file (TOML)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "Database file (overrides db.path)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log to stderr")

	root.AddGroup(
		&cobra.Group{ID: "data", Title: "Tasks and time segments:"},
		&cobra.Group{ID: "plan", Title: "Planning:"},
		&cobra.Group{ID: "maint", Title: "Maintenance:"},
	)
	root.AddCommand(
		newTaskCmd(a),
		newSegmentCmd(a),
		newAgendaCmd(a),
		newScheduleCmd(a),
		newWatchCmd(a),
		newMigrateCmd(a),
		newVersionCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DB.Path = a.dbPath
	}
	a.cfg = cfg

	var out []io.Writer
	if cfg.Log.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
		a.closers = append(a.closers, rotated)
		out = append(out, rotated)
	}
	if a.verbose {
		out = append(out, os.Stderr)
	}
	a.logOut = io.MultiWriter(out...)
	return nil
}

func (a *app) logger(prefix string) *log.Logger {
	return log.New(a.logOut, prefix, log.LstdFlags)
}

func (a *app) storeOptions() docstore.Options {
	return docstore.Options{
		Logger:       a.logger("[docstore] "),
		Now:          a.now,
		WorkdayStart: datetime.Hour(a.cfg.Workday.StartHour),
		WorkdayEnd:   datetime.Hour(a.cfg.Workday.EndHour),
	}
}

// openStore opens and migrates the configured database. The store is closed
// when the command finishes.
func (a *app) openStore(ctx context.Context) (*docstore.Store, error) {
	repo, err := storage.OpenSQLite(ctx, a.cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	store, err := docstore.Open(ctx, repo, a.storeOptions())
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	a.closers = append(a.closers, store)
	return store, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}
