package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagemark/pagemark/internal/config"
	"github.com/pagemark/pagemark/internal/ocr"
	"github.com/pagemark/pagemark/internal/state"
)

var (
	labelPage  int
	labelForce bool
)

var labelCmd = &cobra.Command{
	Use:   "label <pdf>",
	Short: "Run the option-label OCR pass",
	Long: `Recognize option labels (A-E) for the image masks of a page and
record them as unconfirmed guesses. Masks a human already confirmed are
skipped; --force re-runs recognition over all image masks, overwriting
confirmed labels.

The page must have reached the option-labels stage. The recognizer
backend (tesseract or mistral) comes from the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		sess, info, err := openSession(args[0], logger)
		if err != nil {
			return err
		}

		doc := sess.Snapshot()
		pages := make([]int, 0, doc.PageCount)
		if labelPage > 0 {
			pages = append(pages, labelPage)
		} else {
			for n := 1; n <= doc.PageCount; n++ {
				pages = append(pages, n)
			}
		}
		for _, n := range pages {
			p, err := doc.Page(n)
			if err != nil {
				return err
			}
			if p.Workflow.Stage < state.StageOptionLabels {
				if labelPage > 0 {
					return fmt.Errorf("%w: page %d is at %s, labeling requires %s",
						state.ErrStageViolation, n, p.Workflow.Stage, state.StageOptionLabels)
				}
				continue
			}
		}

		rec, err := newRecognizer(cfg)
		if err != nil {
			return err
		}
		defer rec.Close()

		renderer, err := rendererFor(cfg, info.Stem)
		if err != nil {
			return err
		}

		for _, n := range pages {
			p, _ := doc.Page(n)
			if p.Workflow.Stage < state.StageOptionLabels {
				continue
			}
			err := ocr.Run(ctx, sess, renderer, rec, logger, ocr.PassOptions{
				Page:       n,
				DPI:        cfg.Render.DPI,
				Overwrite:  labelForce,
				MaxRetries: uint(cfg.OCR.Mistral.MaxRetries),
			})
			if err != nil {
				return err
			}
		}
		return nil
	},
}

func newRecognizer(cfg *config.Config) (ocr.Recognizer, error) {
	switch cfg.OCR.Backend {
	case "", "tesseract":
		return ocr.NewTesseract()
	case "mistral":
		return ocr.NewMistral(ocr.MistralConfig{
			APIKey:  config.ResolveEnvVars(cfg.OCR.Mistral.APIKey),
			Model:   cfg.OCR.Mistral.Model,
			Timeout: time.Duration(cfg.OCR.Mistral.TimeoutSeconds) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown OCR backend %q", cfg.OCR.Backend)
	}
}

func init() {
	labelCmd.Flags().IntVar(&labelPage, "page", 0, "label a single page (default: all eligible pages)")
	labelCmd.Flags().BoolVar(&labelForce, "force", false, "re-run OCR over confirmed labels, overwriting them")
	rootCmd.AddCommand(labelCmd)
}
