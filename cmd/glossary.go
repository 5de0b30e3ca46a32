/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/store"
)

var (
	glossaryDBPath     string
	glossarySourceLang string
	glossaryTargetLang string
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the terminology glossary",
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add [source-term] [target-term]",
	Short: "Add or replace one glossary entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(glossaryDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.AddGlossaryTerm(context.Background(), glossarySourceLang, glossaryTargetLang, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to add glossary term: %w", err)
		}
		fmt.Printf("Added %s → %s (%s→%s)\n", args[0], args[1], glossarySourceLang, glossaryTargetLang)
		return nil
	},
}

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary entries for a language pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(glossaryDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		entries, err := db.GetGlossaryEntries(context.Background(), glossarySourceLang, glossaryTargetLang)
		if err != nil {
			return fmt.Errorf("failed to list glossary: %w", err)
		}
		for _, e := range entries {
			fmt.Printf("%s → %s\n", e.SourceTerm, e.TargetTerm)
		}
		return nil
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete [source-term]",
	Short: "Delete one glossary entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(glossaryDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.DeleteGlossaryTerm(context.Background(), glossarySourceLang, glossaryTargetLang, args[0]); err != nil {
			return fmt.Errorf("failed to delete glossary term: %w", err)
		}
		fmt.Printf("Deleted %s (%s→%s)\n", args[0], glossarySourceLang, glossaryTargetLang)
		return nil
	},
}

var glossaryImportCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Import glossary entries from a YAML file",
	Long: `Import entries from a YAML list:

  - source: airbender
    target: luftbøjer
  - source: avatar
    target: avatar`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read glossary file: %w", err)
		}

		var entries []internal.GlossaryEntry
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("failed to parse glossary file: %w", err)
		}

		db, err := store.New(glossaryDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		ctx := context.Background()
		for _, e := range entries {
			if err := db.AddGlossaryTerm(ctx, glossarySourceLang, glossaryTargetLang, e.SourceTerm, e.TargetTerm); err != nil {
				return fmt.Errorf("failed to import %q: %w", e.SourceTerm, err)
			}
		}
		fmt.Printf("Imported %d entries (%s→%s)\n", len(entries), glossarySourceLang, glossaryTargetLang)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(glossaryCmd)
	glossaryCmd.AddCommand(glossaryAddCmd, glossaryListCmd, glossaryDeleteCmd, glossaryImportCmd)

	glossaryCmd.PersistentFlags().StringVar(&glossaryDBPath, "db", defaultDBPath(), "database path")
	glossaryCmd.PersistentFlags().StringVarP(&glossarySourceLang, "source", "s", "en", "source language code")
	glossaryCmd.PersistentFlags().StringVarP(&glossaryTargetLang, "target", "t", "", "target language code")
	_ = glossaryCmd.MarkPersistentFlagRequired("target")
}
