package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentic_research_writer/publisher"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a Markdown file to WeChat as a draft article",
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

var (
	mdFlag       string
	titleFlag    string
	pubCoverFlag string
	authorFlag   string
	digestFlag   string
)

func init() {
	publishCmd.Flags().StringVar(&mdFlag, "md", "", "path to markdown file")
	publishCmd.Flags().StringVar(&titleFlag, "title", "", "article title (defaults to the first heading)")
	publishCmd.Flags().StringVar(&pubCoverFlag, "cover", "", "path to cover image")
	publishCmd.Flags().StringVar(&authorFlag, "author", "", "author name")
	publishCmd.Flags().StringVar(&digestFlag, "digest", "", "article digest")
}

func runPublish(cmd *cobra.Command, _ []string) error {
	if mdFlag == "" || pubCoverFlag == "" {
		return errors.New("--md and --cover are required")
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := publisher.New(ctx, cfg.WeChat, logger)
	if err != nil {
		return err
	}

	logger.Info("publishing", zap.String("md", mdFlag), zap.String("cover", pubCoverFlag))
	mediaID, err := p.PublishDraft(ctx, publisher.PublishParams{
		MarkdownPath: mdFlag,
		Title:        titleFlag,
		CoverPath:    pubCoverFlag,
		Author:       authorFlag,
		Digest:       digestFlag,
	})
	if err != nil {
		return err
	}
	logger.Info("publish done", zap.String("media_id", mediaID))
	fmt.Fprintln(cmd.OutOrStdout(), mediaID)
	return nil
}
