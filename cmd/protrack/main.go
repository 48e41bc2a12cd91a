package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kmarcini/protrack/internal/config"
	"github.com/kmarcini/protrack/internal/record"
	"github.com/kmarcini/protrack/internal/repo"
	"github.com/kmarcini/protrack/internal/timer"
)

var rootCmd = &cobra.Command{
	Use:   "protrack",
	Short: "Shared-folder time tracking for course production teams",
	Long: "protrack logs work time against projects in a shared folder.\n" +
		"The folder is the database: a sync service (OneDrive, Drive) carries\n" +
		"it between machines, and every user's entries live in their own files.",
	SilenceUsage: true,
}

var verbose bool

var initCmd = &cobra.Command{
	Use:   "init <folder>",
	Short: "Point protrack at a shared data folder and create its layout",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer and today's logged time",
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log repository activity")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the constructed store, repositories, and engine. Built fresh
// per command; nothing is global.
type app struct {
	cfg      *config.Config
	store    *record.Store
	lookups  *repo.Lookups
	projects *repo.Projects
	modules  *repo.Modules
	entries  *repo.Entries
	stars    *repo.Stars
	engine   *timer.Engine
	user     string
	log      *slog.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.DataFolder == "" {
		return nil, fmt.Errorf("no data folder configured — run 'protrack init <folder>' first")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := record.Open(cfg.DataFolder, logger)
	if err != nil {
		return nil, fmt.Errorf("opening data folder: %w", err)
	}
	user, err := cfg.CurrentUser()
	if err != nil {
		return nil, err
	}

	lookups := repo.NewLookups(store, logger)
	projects := repo.NewProjects(store, lookups, nil, logger)
	entries := repo.NewEntries(store, projects, lookups, logger)

	return &app{
		cfg:      cfg,
		store:    store,
		lookups:  lookups,
		projects: projects,
		modules:  repo.NewModules(projects, lookups),
		entries:  entries,
		stars:    repo.NewStars(store, logger),
		engine:   timer.New(entries, nil, logger),
		user:     user,
		log:      logger,
	}, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.DataFolder = args[0]

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store, err := record.Open(cfg.DataFolder, logger)
	if err != nil {
		return fmt.Errorf("preparing data folder: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("Data folder ready: %s\n", store.Root())
	user, err := cfg.CurrentUser()
	if err == nil {
		fmt.Printf("Logging time as: %s\n", user)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	open, err := app.engine.Status(ctx, app.user)
	if err != nil {
		return err
	}
	if open != nil {
		name := open.ProjectID
		if proj, err := app.projects.Get(open.ProjectID); err == nil {
			name = proj.Name
		}
		fmt.Printf("Running: %s since %s (%s)\n",
			name,
			open.Start.Local().Format("15:04"),
			time.Since(open.Start).Round(time.Minute),
		)
	} else {
		fmt.Println("No timer running.")
	}

	today := time.Now()
	entries, err := app.entries.List(ctx, repo.EntryFilter{From: today, To: today, UserID: app.user})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No entries logged today.")
		return nil
	}

	fmt.Println("\nToday's entries:")
	var total time.Duration
	for _, e := range entries {
		d, _ := e.Duration()
		total += d
		fmt.Printf("  %s–%s  %-8s  %s\n",
			e.Start.Local().Format("15:04"),
			e.End.Local().Format("15:04"),
			d.Round(time.Minute),
			projectLabel(app, e.ProjectID),
		)
	}
	fmt.Printf("\nTotal: %s (%d entries)\n", total.Round(time.Minute), len(entries))
	return nil
}

func projectLabel(app *app, id string) string {
	if proj, err := app.projects.Get(id); err == nil {
		return proj.Name
	}
	return id
}
