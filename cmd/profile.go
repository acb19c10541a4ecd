package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/mastery"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the mastery profile the backend holds for this student",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := api.New(api.Options{
			BaseURL:   cfg.BaseURL,
			StudentID: cfg.StudentID,
			Timeout:   cfg.Timeout,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("build API client: %w", err)
		}

		p, err := client.Profile(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}

		fmt.Printf("Student:          %s\n", p.StudentID)
		fmt.Printf("Overall ability:  %.0f%%\n", p.OverallAbility*100)
		if !p.UpdatedAt.IsZero() {
			fmt.Printf("Last update:      %s\n", p.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		fmt.Println()

		if len(p.MasteryLevels) == 0 {
			fmt.Println("No mastery recorded yet. Ask questions or take a quiz first.")
			return nil
		}

		type row struct {
			concept string
			level   float64
		}
		rows := make([]row, 0, len(p.MasteryLevels))
		for c, l := range p.MasteryLevels {
			rows = append(rows, row{concept: c, level: l})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].level != rows[j].level {
				return rows[i].level > rows[j].level
			}
			return rows[i].concept < rows[j].concept
		})

		fmt.Printf("%-40s  %8s  %-8s\n", "Concept", "Mastery", "Target")
		fmt.Println(strings.Repeat("─", 60))
		for _, r := range rows {
			name := r.concept
			if len(name) > 40 {
				name = name[:40]
			}
			fmt.Printf("%-40s  %7.0f%%  %-8s\n", name, r.level*100, mastery.TargetDifficulty(r.level))
		}
		fmt.Println(strings.Repeat("─", 60))
		fmt.Printf("%d concepts tracked\n", len(rows))
		return nil
	},
}
