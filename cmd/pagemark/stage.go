package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pagemark/pagemark/internal/ocr"
	"github.com/pagemark/pagemark/internal/state"
)

var advanceCmd = &cobra.Command{
	Use:   "advance <pdf> <page>",
	Short: "Advance a page to the next workflow stage",
	Long: `Move a page one workflow stage forward. Entering the option-labels
stage for the first time runs the automatic label OCR pass over the
page's unchecked image masks.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		page, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid page number %q", args[1])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess, info, err := openSession(args[0], logger)
		if err != nil {
			return err
		}

		stage, runOCR, err := sess.Advance(page)
		if err != nil {
			return err
		}
		fmt.Printf("Page %d is now at stage %d (%s)\n", page, int(stage), stage)

		if runOCR {
			rec, err := newRecognizer(cfg)
			if err != nil {
				logger.Warn("automatic labeling skipped", "error", err)
				return nil
			}
			defer rec.Close()
			renderer, err := rendererFor(cfg, info.Stem)
			if err != nil {
				return err
			}
			err = ocr.Run(ctx, sess, renderer, rec, logger, ocr.PassOptions{
				Page:       page,
				DPI:        cfg.Render.DPI,
				MaxRetries: uint(cfg.OCR.Mistral.MaxRetries),
			})
			if err != nil {
				logger.Warn("automatic labeling failed", "page", page, "error", err)
			}
		}
		return nil
	},
}

var regressCmd = &cobra.Command{
	Use:   "regress <pdf> <page> <stage>",
	Short: "Move a page back to an earlier workflow stage",
	Long: `Move a page back to an earlier stage (1-6) to redo work. Regression
always clears the page's approval.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		page, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid page number %q", args[1])
		}
		to, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid stage %q", args[2])
		}
		sess, _, err := openSession(args[0], logger)
		if err != nil {
			return err
		}
		if err := sess.Regress(page, state.Stage(to)); err != nil {
			return err
		}
		fmt.Printf("Page %d is back at stage %d (%s)\n", page, to, state.Stage(to))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(regressCmd)
}
