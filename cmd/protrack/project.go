package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kmarcini/protrack/internal/domain"
	"github.com/kmarcini/protrack/internal/repo"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, starred first",
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one project with its chunk modules",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change project fields; unset flags are left alone",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectUpdate,
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive <id>",
	Short: "Archive a project (it rejects new time entries)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.projects.Archive(args[0], app.user); err != nil {
			return err
		}
		fmt.Printf("Archived %s\n", args[0])
		return nil
	},
}

var projectUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <id>",
	Short: "Restore an archived project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.projects.Unarchive(args[0], app.user); err != nil {
			return err
		}
		fmt.Printf("Restored %s\n", args[0])
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project and its modules (only when it has no time entries)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.projects.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var projectImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Bulk-create projects from a CSV file",
	Long: "The CSV needs a header row; recognized columns are name,\n" +
		"target_hours, campus, offer, sub_offer, effort_type, status, notes.\n" +
		"Rows are validated independently: bad rows are reported and skipped,\n" +
		"the rest are created.",
	Args: cobra.ExactArgs(1),
	RunE: runProjectImport,
}

var projectStarCmd = &cobra.Command{
	Use:   "star <id>",
	Short: "Pin a project to the top of your listings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStar(args[0], true)
	},
}

var projectUnstarCmd = &cobra.Command{
	Use:   "unstar <id>",
	Short: "Unpin a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setStar(args[0], false)
	},
}

func init() {
	projectAddCmd.Flags().String("target", "0", "Target view hours")
	projectAddCmd.Flags().String("campus", "", "Campus (name)")
	projectAddCmd.Flags().String("offer", "", "Offer")
	projectAddCmd.Flags().String("sub-offer", "", "Sub-offer")
	projectAddCmd.Flags().String("effort", "", "Effort type (name)")
	projectAddCmd.Flags().String("status", "", "Status (name)")
	projectAddCmd.Flags().String("notes", "", "Notes")

	projectListCmd.Flags().Bool("all", false, "Include archived projects")

	projectUpdateCmd.Flags().String("name", "", "New name")
	projectUpdateCmd.Flags().String("target", "", "New target view hours")
	projectUpdateCmd.Flags().String("campus", "", "New campus (name)")
	projectUpdateCmd.Flags().String("offer", "", "New offer")
	projectUpdateCmd.Flags().String("sub-offer", "", "New sub-offer")
	projectUpdateCmd.Flags().String("effort", "", "New effort type (name)")
	projectUpdateCmd.Flags().String("status", "", "New status (name)")
	projectUpdateCmd.Flags().String("notes", "", "New notes")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectUpdateCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	projectCmd.AddCommand(projectUnarchiveCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectImportCmd)
	projectCmd.AddCommand(projectStarCmd)
	projectCmd.AddCommand(projectUnstarCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	table, err := app.lookups.Table()
	if err != nil {
		return err
	}

	targetStr, _ := cmd.Flags().GetString("target")
	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return fmt.Errorf("parsing --target: %q is not a number", targetStr)
	}

	draft := repo.ProjectDraft{
		Name:            args[0],
		TargetViewHours: target,
		CreatedBy:       app.user,
	}
	draft.Offer, _ = cmd.Flags().GetString("offer")
	draft.SubOffer, _ = cmd.Flags().GetString("sub-offer")
	draft.Notes, _ = cmd.Flags().GetString("notes")

	for _, ref := range []struct {
		flag     string
		category string
		field    *string
	}{
		{"campus", domain.CategoryCampuses, &draft.CampusID},
		{"effort", domain.CategoryEffortTypes, &draft.EffortTypeID},
		{"status", domain.CategoryStatuses, &draft.StatusID},
	} {
		name, _ := cmd.Flags().GetString(ref.flag)
		if name == "" {
			continue
		}
		v, ok := table.FindByName(ref.category, name)
		if !ok {
			return fmt.Errorf("unknown %s %q — see 'protrack lookup list %s'", ref.flag, name, ref.category)
		}
		*ref.field = v.ID
	}

	proj, err := app.projects.Create(draft)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s  %s\n", proj.ID, proj.Name)
	return nil
}

func runProjectUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	table, err := app.lookups.Table()
	if err != nil {
		return err
	}

	patch := repo.ProjectPatch{ModifiedBy: app.user}
	if cmd.Flags().Changed("name") {
		v, _ := cmd.Flags().GetString("name")
		patch.Name = &v
	}
	if cmd.Flags().Changed("target") {
		s, _ := cmd.Flags().GetString("target")
		target, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("parsing --target: %q is not a number", s)
		}
		patch.TargetViewHours = &target
	}
	if cmd.Flags().Changed("offer") {
		v, _ := cmd.Flags().GetString("offer")
		patch.Offer = &v
	}
	if cmd.Flags().Changed("sub-offer") {
		v, _ := cmd.Flags().GetString("sub-offer")
		patch.SubOffer = &v
	}
	if cmd.Flags().Changed("notes") {
		v, _ := cmd.Flags().GetString("notes")
		patch.Notes = &v
	}
	for _, ref := range []struct {
		flag     string
		category string
		field    **string
	}{
		{"campus", domain.CategoryCampuses, &patch.CampusID},
		{"effort", domain.CategoryEffortTypes, &patch.EffortTypeID},
		{"status", domain.CategoryStatuses, &patch.StatusID},
	} {
		if !cmd.Flags().Changed(ref.flag) {
			continue
		}
		name, _ := cmd.Flags().GetString(ref.flag)
		v, ok := table.FindByName(ref.category, name)
		if !ok {
			return fmt.Errorf("unknown %s %q — see 'protrack lookup list %s'", ref.flag, name, ref.category)
		}
		id := v.ID
		*ref.field = &id
	}

	proj, err := app.projects.Update(args[0], patch)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s  %s\n", proj.ID, proj.Name)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")

	projects, err := app.projects.List(repo.ProjectFilter{IncludeArchived: all})
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet — 'protrack project add' or 'protrack project import'.")
		return nil
	}
	starred, err := app.stars.List(app.user)
	if err != nil {
		return err
	}

	print := func(wantStar bool) {
		for _, p := range projects {
			if starred[p.ID] != wantStar {
				continue
			}
			marker := " "
			if wantStar {
				marker = "*"
			}
			suffix := ""
			if p.Archived {
				suffix = "  [archived]"
			}
			fmt.Printf("%s %s  %-30s  target %sh%s\n", marker, p.ID, p.Name, p.TargetViewHours, suffix)
		}
	}
	print(true)
	print(false)
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	proj, err := app.projects.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n", proj.ID, proj.Name)
	fmt.Printf("  Target view hours: %s\n", proj.TargetViewHours)
	table, err := app.lookups.Table()
	if err != nil {
		return err
	}
	for _, ref := range []struct {
		label    string
		category string
		id       string
	}{
		{"Campus", domain.CategoryCampuses, proj.CampusID},
		{"Effort type", domain.CategoryEffortTypes, proj.EffortTypeID},
		{"Status", domain.CategoryStatuses, proj.StatusID},
	} {
		if ref.id == "" {
			continue
		}
		name := ref.id
		if v, ok := table.Find(ref.category, ref.id); ok {
			name = v.Name
		}
		fmt.Printf("  %s: %s\n", ref.label, name)
	}
	if proj.Offer != "" {
		fmt.Printf("  Offer: %s", proj.Offer)
		if proj.SubOffer != "" {
			fmt.Printf(" / %s", proj.SubOffer)
		}
		fmt.Println()
	}
	if proj.Archived {
		fmt.Println("  Archived")
	}
	if proj.Notes != "" {
		fmt.Printf("  Notes: %s\n", proj.Notes)
	}
	if len(proj.Modules) > 0 {
		fmt.Println("  Modules:")
		for _, m := range proj.Modules {
			name := m.Name
			if name == "" {
				name = fmt.Sprintf("TM %d", m.Number)
			}
			fmt.Printf("    %2d. %-30s %-12s (%s)\n", m.Number, name, m.Status, m.ID)
		}
	}
	return nil
}

func runProjectImport(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	rows, err := readImportCSV(f)
	if err != nil {
		return err
	}

	result, err := app.projects.BulkImport(cmd.Context(), rows, app.user)
	if err != nil {
		return err
	}
	fmt.Printf("Created %d, skipped %d duplicates, %d errors\n",
		result.Created, result.Skipped, len(result.Errors))
	for _, re := range result.Errors {
		fmt.Printf("  %v\n", re)
	}
	return nil
}

// readImportCSV maps a header row onto ImportRow fields. Header matching is
// forgiving about case, spaces, and underscores.
func readImportCSV(r io.Reader) ([]repo.ImportRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}
	col := func(rec []string, names ...string) string {
		for _, n := range names {
			if i, ok := index[n]; ok && i < len(rec) {
				return rec[i]
			}
		}
		return ""
	}
	if _, ok := index["name"]; !ok {
		if _, ok := index["project_name"]; !ok {
			return nil, fmt.Errorf("CSV has no name column (got: %s)", strings.Join(header, ", "))
		}
	}

	var rows []repo.ImportRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		rows = append(rows, repo.ImportRow{
			Name:        col(rec, "name", "project_name"),
			TargetHours: col(rec, "target_hours", "target_view_hours", "view_hours", "target"),
			Campus:      col(rec, "campus"),
			Offer:       col(rec, "offer"),
			SubOffer:    col(rec, "sub_offer"),
			EffortType:  col(rec, "effort_type", "effort"),
			Status:      col(rec, "status"),
			Notes:       col(rec, "notes"),
		})
	}
	return rows, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func setStar(projectID string, starred bool) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	if _, err := app.projects.Get(projectID); err != nil {
		return err
	}
	if err := app.stars.Set(app.user, projectID, starred); err != nil {
		return err
	}
	if starred {
		fmt.Printf("Starred %s\n", projectID)
	} else {
		fmt.Printf("Unstarred %s\n", projectID)
	}
	return nil
}
