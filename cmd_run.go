package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentic_research_writer/config"
	"agentic_research_writer/pipeline"
	"agentic_research_writer/publisher"
)

var runCmd = &cobra.Command{
	Use:   "run <topic>",
	Short: "Research, write and critique a blog post on a topic",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

var (
	outFlag     string
	htmlFlag    string
	offlineFlag bool
	publishFlag bool
	coverFlag   string
)

func init() {
	runCmd.Flags().StringVarP(&outFlag, "out", "o", "", "write the final draft to this Markdown file")
	runCmd.Flags().StringVar(&htmlFlag, "html", "", "also render the final draft to this HTML file")
	runCmd.Flags().BoolVar(&offlineFlag, "offline", false, "use offline mock providers (no API keys needed)")
	runCmd.Flags().BoolVar(&publishFlag, "publish", false, "push the final draft to WeChat as a draft article")
	runCmd.Flags().StringVar(&coverFlag, "cover", "", "cover image for --publish")
}

func runRun(cmd *cobra.Command, args []string) error {
	topic := strings.TrimSpace(strings.Join(args, " "))
	if publishFlag && coverFlag == "" {
		return errors.New("--publish requires --cover")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	if publishFlag && !cfg.WeChat.Enabled() {
		return publisher.ErrNotConfigured
	}

	orch, err := buildOrchestrator(cfg, offlineFlag, logger, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := eventPrinter{w: cmd.OutOrStdout()}
	var final pipeline.State
	for e, err := range orch.Stream(ctx, topic) {
		if err != nil {
			out.failure(err)
			return err
		}
		out.event(e)
		final = e.State
	}

	draft := final.DraftContent
	if err := writeOutputs(draft); err != nil {
		return err
	}
	if outFlag == "" {
		out.summary(final)
		fmt.Fprintln(cmd.OutOrStdout(), draft)
	}

	if publishFlag {
		mediaID, err := publishDraft(ctx, cfg.WeChat, logger, draft)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "published draft media_id:", mediaID)
	}
	return nil
}

func writeOutputs(draft string) error {
	if outFlag != "" {
		if err := os.WriteFile(outFlag, []byte(draft+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outFlag, err)
		}
	}
	if htmlFlag != "" {
		body, err := publisher.RenderHTML(draft)
		if err != nil {
			return err
		}
		page := "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"></head><body>\n" + body + "</body></html>\n"
		if err := os.WriteFile(htmlFlag, []byte(page), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", htmlFlag, err)
		}
	}
	return nil
}

func publishDraft(ctx context.Context, cfg config.WeChatConfig, logger *zap.Logger, draft string) (string, error) {
	p, err := publisher.New(ctx, cfg, logger)
	if err != nil {
		return "", err
	}
	return p.PublishDraft(ctx, publisher.PublishParams{Markdown: draft, CoverPath: coverFlag})
}
