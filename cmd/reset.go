package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the mastery profile on the backend and in the local cache",
	Long: `Reset asks the backend to forget everything it knows about this
student's mastery, then clears the local mirror. Saved answers stay.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		fmt.Printf("This erases all mastery progress for student %q. Type yes to continue: ", cfg.StudentID)
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() || strings.TrimSpace(strings.ToLower(scanner.Text())) != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	client, err := api.New(api.Options{
		BaseURL:   cfg.BaseURL,
		StudentID: cfg.StudentID,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build API client: %w", err)
	}

	p, err := client.ResetProfile(cmd.Context())
	if err != nil {
		return fmt.Errorf("reset profile: %w", err)
	}

	// The local mirror follows the backend. A cache failure here leaves a
	// stale mirror that the next sync overwrites, so it only warns.
	if db, derr := openStore(cmd); derr == nil {
		if cerr := db.MasteryRepo().Clear(cmd.Context()); cerr != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: could not clear local cache:", cerr)
			logger.Warn("clear local mastery cache", zap.Error(cerr))
		}
		db.Close()
	}

	fmt.Printf("Profile reset for student %q. %d concepts tracked.\n", p.StudentID, len(p.MasteryLevels))
	return nil
}
