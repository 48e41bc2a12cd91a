package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kmarcini/protrack/internal/domain"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Manage shared lookup values (employees, work types, campuses, ...)",
	Long: "Lookup values live in the shared team file and are referenced by id\n" +
		"from projects and time entries. Categories: " + strings.Join(domain.Categories, ", ") + ".",
}

var lookupListCmd = &cobra.Command{
	Use:   "list <category>",
	Short: "List values in a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookupList,
}

var lookupAddCmd = &cobra.Command{
	Use:   "add <category> <name>",
	Short: "Add a value to a category",
	Args:  cobra.ExactArgs(2),
	RunE:  runLookupAdd,
}

var lookupRenameCmd = &cobra.Command{
	Use:   "rename <category> <id> <new-name>",
	Short: "Rename a value; references keep pointing at it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		v, err := app.lookups.Rename(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Printf("Renamed %s to %q\n", v.ID, v.Name)
		return nil
	},
}

var lookupDeactivateCmd = &cobra.Command{
	Use:   "deactivate <category> <id>",
	Short: "Hide a value from pickers without touching history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.lookups.Deactivate(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Deactivated %s\n", args[1])
		return nil
	},
}

var lookupActivateCmd = &cobra.Command{
	Use:   "activate <category> <id>",
	Short: "Restore a deactivated value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.lookups.Activate(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Activated %s\n", args[1])
		return nil
	},
}

var lookupDeleteCmd = &cobra.Command{
	Use:   "delete <category> <id>",
	Short: "Hard-delete a value (only when nothing references it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.lookups.Delete(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[1])
		return nil
	},
}

var lookupImportCmd = &cobra.Command{
	Use:   "import <category> <file>",
	Short: "Bulk-add values from a file, one name per line",
	Args:  cobra.ExactArgs(2),
	RunE:  runLookupImport,
}

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Manage a project's chunk modules",
}

var moduleAddCmd = &cobra.Command{
	Use:   "add <project-id> [name]",
	Short: "Append a module to a project",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 2 {
			name = args[1]
		}
		mod, err := app.modules.Add(args[0], name, app.user)
		if err != nil {
			return err
		}
		fmt.Printf("Added module %d (%s)\n", mod.Number, mod.ID)
		return nil
	},
}

var moduleListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List a project's modules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		mods, err := app.modules.List(args[0])
		if err != nil {
			return err
		}
		if len(mods) == 0 {
			fmt.Println("No modules.")
			return nil
		}
		for _, m := range mods {
			name := m.Name
			if name == "" {
				name = fmt.Sprintf("TM %d", m.Number)
			}
			fmt.Printf("%2d. %-30s %-12s (%s)\n", m.Number, name, m.Status, m.ID)
		}
		return nil
	},
}

var moduleSetStatusCmd = &cobra.Command{
	Use:   "set-status <project-id> <module-id> <status>",
	Short: "Move a module to another production status",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.modules.SetStatus(args[0], args[1], args[2], app.user); err != nil {
			return err
		}
		fmt.Printf("Module %s is now %s\n", args[1], args[2])
		return nil
	},
}

var moduleDeleteCmd = &cobra.Command{
	Use:   "delete <project-id> <module-id>",
	Short: "Remove a module from a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.modules.Delete(args[0], args[1], app.user); err != nil {
			return err
		}
		fmt.Printf("Deleted module %s\n", args[1])
		return nil
	},
}

func init() {
	lookupListCmd.Flags().Bool("all", false, "Include deactivated values")
	lookupAddCmd.Flags().String("role", "", "Role, for the employees category")

	lookupCmd.AddCommand(lookupListCmd)
	lookupCmd.AddCommand(lookupAddCmd)
	lookupCmd.AddCommand(lookupRenameCmd)
	lookupCmd.AddCommand(lookupDeactivateCmd)
	lookupCmd.AddCommand(lookupActivateCmd)
	lookupCmd.AddCommand(lookupDeleteCmd)
	lookupCmd.AddCommand(lookupImportCmd)
	rootCmd.AddCommand(lookupCmd)

	moduleCmd.AddCommand(moduleAddCmd)
	moduleCmd.AddCommand(moduleListCmd)
	moduleCmd.AddCommand(moduleSetStatusCmd)
	moduleCmd.AddCommand(moduleDeleteCmd)
	rootCmd.AddCommand(moduleCmd)
}

func runLookupList(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	all, _ := cmd.Flags().GetBool("all")

	values, err := app.lookups.List(args[0], all)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		fmt.Println("No values.")
		return nil
	}
	for _, v := range values {
		suffix := ""
		if !v.Active {
			suffix = "  [inactive]"
		}
		if v.Role != "" {
			suffix += "  (" + v.Role + ")"
		}
		fmt.Printf("%-24s %s%s\n", v.ID, v.Name, suffix)
	}
	return nil
}

func runLookupAdd(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	role, _ := cmd.Flags().GetString("role")

	v, err := app.lookups.Add(args[0], args[1], role)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s  %s\n", v.ID, v.Name)
	return nil
}

func runLookupImport(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	f, err := os.Open(args[1])
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading import file: %w", err)
	}

	added, skipped, errs, err := app.lookups.BulkImport(cmd.Context(), args[0], names)
	if err != nil {
		return err
	}
	fmt.Printf("Added %d, skipped %d duplicates, %d errors\n", added, skipped, len(errs))
	for _, re := range errs {
		fmt.Printf("  %v\n", re)
	}
	return nil
}
