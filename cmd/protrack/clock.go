package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	naturaldate "github.com/tj/go-naturaldate"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/timer"
)

var inCmd = &cobra.Command{
	Use:   "in <project-id> <work-type>",
	Short: "Clock in against a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runIn,
}

var outCmd = &cobra.Command{
	Use:   "out",
	Short: "Clock out of the running timer",
	RunE:  runOut,
}

var logCmd = &cobra.Command{
	Use:   "log <project-id> <work-type>",
	Short: "Log a completed entry manually",
	Args:  cobra.ExactArgs(2),
	RunE:  runLog,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Deal with a timer left running by a crash or another day",
	Long: "A process crash while clocked in leaves the entry open on disk.\n" +
		"protrack never closes it behind your back: resume shows it and lets\n" +
		"you keep it running, close it at a time you choose, or discard it.",
	RunE: runResume,
}

func init() {
	outCmd.Flags().StringP("notes", "m", "", "Notes for the completed entry")

	logCmd.Flags().String("start", "", "Start time (RFC3339, '2006-01-02 15:04', or natural language)")
	logCmd.Flags().String("end", "", "End time")
	logCmd.Flags().StringP("notes", "m", "", "Notes for the entry")
	logCmd.MarkFlagRequired("start")
	logCmd.MarkFlagRequired("end")

	resumeCmd.Flags().String("close-at", "", "Close the open entry at this time")
	resumeCmd.Flags().Bool("discard", false, "Delete the open entry")
	resumeCmd.Flags().StringP("notes", "m", "", "Notes when closing")

	rootCmd.AddCommand(inCmd)
	rootCmd.AddCommand(outCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(resumeCmd)
}

func runIn(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	workType, err := resolveWorkType(app, args[1])
	if err != nil {
		return err
	}

	entry, err := app.engine.ClockIn(cmd.Context(), app.user, args[0], workType)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyRunning) {
			return fmt.Errorf("%w — run 'protrack out' or 'protrack resume' first", err)
		}
		return err
	}
	fmt.Printf("Clocked in: %s at %s\n", projectLabel(app, entry.ProjectID), entry.Start.Local().Format("15:04"))
	return nil
}

func runOut(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	notes, _ := cmd.Flags().GetString("notes")

	entry, err := app.engine.ClockOut(cmd.Context(), app.user, notes)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDuration) {
			return fmt.Errorf("%w — the system clock appears to have moved backward; the timer is still running, retry shortly", err)
		}
		return err
	}
	d, _ := entry.Duration()
	fmt.Printf("Clocked out: %s — %s\n", projectLabel(app, entry.ProjectID), d.Round(time.Minute))
	return nil
}

func runLog(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	workType, err := resolveWorkType(app, args[1])
	if err != nil {
		return err
	}
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	notes, _ := cmd.Flags().GetString("notes")

	start, err := parseWhen(startStr)
	if err != nil {
		return fmt.Errorf("parsing --start: %w", err)
	}
	end, err := parseWhen(endStr)
	if err != nil {
		return fmt.Errorf("parsing --end: %w", err)
	}

	entry, err := app.engine.ManualEntry(cmd.Context(), app.user, args[0], workType, start, end, notes)
	if err != nil {
		return err
	}
	d, _ := entry.Duration()
	fmt.Printf("Logged: %s — %s on %s\n",
		projectLabel(app, entry.ProjectID), d.Round(time.Minute), entry.Start.Local().Format("2006-01-02"))
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	open, err := app.engine.Status(ctx, app.user)
	if err != nil {
		return err
	}
	if open == nil {
		fmt.Println("No open entry to recover.")
		return nil
	}

	discard, _ := cmd.Flags().GetBool("discard")
	closeAt, _ := cmd.Flags().GetString("close-at")
	notes, _ := cmd.Flags().GetString("notes")

	switch {
	case discard:
		if _, err := app.engine.Resolve(ctx, app.user, timer.Discard, time.Time{}, ""); err != nil {
			return err
		}
		fmt.Println("Open entry discarded.")
	case closeAt != "":
		at, err := parseWhen(closeAt)
		if err != nil {
			return fmt.Errorf("parsing --close-at: %w", err)
		}
		entry, err := app.engine.Resolve(ctx, app.user, timer.CloseAt, at, notes)
		if err != nil {
			return err
		}
		d, _ := entry.Duration()
		fmt.Printf("Closed: %s — %s\n", projectLabel(app, entry.ProjectID), d.Round(time.Minute))
	default:
		fmt.Printf("Open entry: %s since %s (started %s)\n",
			projectLabel(app, open.ProjectID),
			open.Start.Local().Format("15:04"),
			open.Start.Local().Format("2006-01-02"),
		)
		fmt.Println("Still running. Use --close-at <time> to close it or --discard to drop it.")
	}
	return nil
}

// resolveWorkType accepts either a work-type id or a display name.
func resolveWorkType(app *app, s string) (string, error) {
	table, err := app.lookups.Table()
	if err != nil {
		return "", err
	}
	if v, ok := table.Find(domain.CategoryWorkTypes, s); ok {
		return v.ID, nil
	}
	if v, ok := table.FindByName(domain.CategoryWorkTypes, s); ok {
		return v.ID, nil
	}
	return "", fmt.Errorf("unknown work type %q — see 'protrack lookup list work_types'", s)
}

// parseWhen accepts RFC3339, common date/time layouts, and natural language
// ("yesterday 5pm", "10 minutes ago").
func parseWhen(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
		"15:04",
	} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			if layout == "15:04" {
				now := time.Now()
				t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
			}
			return t, nil
		}
	}
	t, err := naturaldate.Parse(s, time.Now(), naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse time %q", s)
	}
	return t, nil
}
