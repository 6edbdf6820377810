package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"traindeck/internal/editor"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "contentmgr",
	Short: "Manage the console's scenario and template documents",
	Long: `contentmgr imports, merges, and inspects the two JSON documents the
training console serves: scenarios.json and templates.json.

Sources can be JSON exports or CSV sheets; CSV rows are converted to the
canonical record form and merged by scenario id.`,
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import scenarios or templates from a JSON or CSV file",
}

var importScenariosCmd = &cobra.Command{
	Use:   "scenarios <source>",
	Short: "Merge scenario records from a source file into scenarios.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := &editor.Manager{Dir: dataDir}
		added, updated, err := m.ImportScenarios(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("scenarios: %d added, %d updated -> %s\n", added, updated, m.ScenariosPath())
		return nil
	},
}

var importTemplatesCmd = &cobra.Command{
	Use:   "templates <source>",
	Short: "Replace templates.json from a source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := &editor.Manager{Dir: dataDir}
		count, err := m.ImportTemplates(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("templates: %d imported -> %s\n", count, m.TemplatesPath())
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:       "clear {scenarios|templates}",
	Short:     "Reset a document to its empty container",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"scenarios", "templates"},
	RunE: func(cmd *cobra.Command, args []string) error {
		m := &editor.Manager{Dir: dataDir}
		if args[0] == "scenarios" {
			return m.ClearScenarios()
		}
		return m.ClearTemplates()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show item counts for both documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m := &editor.Manager{Dir: dataDir}
		scenarios, templates, err := m.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("scenarios: %d\ntemplates: %d\n", scenarios, templates)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Folder holding scenarios.json and templates.json")
	importCmd.AddCommand(importScenariosCmd)
	importCmd.AddCommand(importTemplatesCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
