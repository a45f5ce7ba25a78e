package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/mindfeed-backend/internal/feedclient"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/tasks"
)

var (
	smokeURL      string
	smokeUser     string
	smokeLanguage string
	smokeAttempts int

	smokeCmd = &cobra.Command{
		Use:   "smoke [message...]",
		Short: "Submit a message to a running API and print the content generated for it",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSmoke,
	}
)

func init() {
	smokeCmd.Flags().StringVar(&smokeURL, "url", "http://localhost:8080", "API base URL")
	smokeCmd.Flags().StringVar(&smokeUser, "user", "smoke-user", "user id to submit as")
	smokeCmd.Flags().StringVar(&smokeLanguage, "lang", "en", "message language (en or ru)")
	smokeCmd.Flags().IntVar(&smokeAttempts, "attempts", 30, "task polls before falling back to cached content")
	rootCmd.AddCommand(smokeCmd)
}

func runSmoke(cmd *cobra.Command, args []string) error {
	log, err := logger.New("development")
	if err != nil {
		return err
	}
	defer log.Sync()

	client, err := feedclient.New(log, feedclient.Config{BaseURL: smokeURL})
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	msg, err := client.SubmitMessage(ctx, feedclient.MessageRequest{
		UserID:   smokeUser,
		Text:     strings.Join(args, " "),
		Language: smokeLanguage,
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	cmd.Printf("topic=%q decision=%s task=%s fresh=%v degraded=%v\n",
		msg.Topic, msg.Decision, msg.GenerationTaskID, msg.Fresh, msg.Degraded)
	if msg.Topic == "" {
		return nil
	}

	res, err := client.AwaitContent(ctx, feedclient.AwaitRequest{
		TaskID:   msg.GenerationTaskID,
		Topic:    msg.Topic,
		Language: smokeLanguage,
		Policy:   tasks.PollPolicy{Interval: time.Second, MaxAttempts: smokeAttempts},
	})
	if err != nil {
		return fmt.Errorf("await: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
