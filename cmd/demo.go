package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/studiz/internal/stubserver"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Try the app against a built-in stub backend, no server required",
	Long: `Demo starts an in-process stub of the tutor backend seeded with a small
biology dataset, points the UI at it, and tears it down on exit. Streaming,
quizzes, mastery sync, and subject switching all work offline.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().Duration("token-delay", 25*time.Millisecond, "Pause between streamed tokens")
}

func runDemo(cmd *cobra.Command, args []string) error {
	delay, _ := cmd.Flags().GetDuration("token-delay")

	srv := stubserver.New(stubserver.Options{
		TokenDelay: delay,
		Logger:     logger,
	})
	baseURL, err := srv.Start("127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("start stub backend: %w", err)
	}
	defer srv.Close()

	cfg.BaseURL = baseURL
	cfg.Subject = "biology"
	return runTUI(cmd)
}
