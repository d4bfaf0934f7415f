package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sentiboard/internal/models"
)

var (
	feedback             models.Feedback
	reported, corrected string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Report a mislabelled comment for retraining",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if feedback.Reported, err = models.ParseSentiment(reported); err != nil {
			return fmt.Errorf("--reported: %w", err)
		}
		if feedback.Corrected, err = models.ParseSentiment(corrected); err != nil {
			return fmt.Errorf("--corrected: %w", err)
		}
		return run(cmd, func(ctx context.Context, a *app) error {
			client, err := a.backend()
			if err != nil {
				return err
			}
			ack, err := client.SubmitFeedback(ctx, feedback)
			if err != nil {
				return err
			}
			if ack.CurrentSize > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d queued)\n", ack.Status, ack.CurrentSize)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), ack.Status)
			}
			return nil
		})
	},
}

func init() {
	f := feedbackCmd.Flags()
	f.StringVar(&feedback.Date, "date", "", "comment date")
	f.StringVar(&feedback.Link, "link", "", "link of the commented post")
	f.StringVar(&feedback.Content, "content", "", "comment text")
	f.StringVar(&reported, "reported", "", "label the dashboard showed")
	f.StringVar(&corrected, "corrected", "", "label the comment should have")
	_ = feedbackCmd.MarkFlagRequired("content")
	_ = feedbackCmd.MarkFlagRequired("reported")
	_ = feedbackCmd.MarkFlagRequired("corrected")
}
