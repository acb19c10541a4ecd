package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/studiz/internal/api"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List the subjects the backend can teach",
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

		list, err := client.Subjects(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch subjects: %w", err)
		}
		if len(list.Subjects) == 0 {
			fmt.Println("The backend reports no subjects.")
			return nil
		}

		fmt.Printf("  %-12s  %-26s  %s\n", "ID", "Name", "Description")
		fmt.Println(strings.Repeat("─", 76))
		for _, s := range list.Subjects {
			marker := " "
			if s.ID == cfg.Subject {
				marker = "●"
			}
			name := s.Name
			if s.IsDefault {
				name += " (default)"
			}
			desc := s.Description
			if len(desc) > 32 {
				desc = desc[:31] + "…"
			}
			fmt.Printf("%s %-12s  %-26s  %s\n", marker, s.ID, name, desc)
		}
		fmt.Println(strings.Repeat("─", 76))
		fmt.Printf("Studying %q. Switch with --subject or STUDIZ_SUBJECT.\n", cfg.Subject)
		return nil
	},
}
