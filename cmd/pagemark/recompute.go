package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute <pdf> <page> <image|question>",
	Short: "Replace a page's masks with detected candidate regions",
	Long: `Discard the page's masks of the given kind and recreate them from the
candidate regions the layout analysis step left next to the rendered
pages (page-<n>.image-regions.json / page-<n>.question-regions.json).

Image masks can be recomputed while the page is at the image-regions
stage, question masks at the question-regions stage.`,
	Args: cobra.ExactArgs(3),
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
		det, err := detectorFor(cfg, info.Stem)
		if err != nil {
			return err
		}

		switch args[2] {
		case "image":
			candidates, err := det.DetectImageRegions(ctx, page)
			if err != nil {
				return err
			}
			if err := sess.RecomputeImageMasks(page, candidates); err != nil {
				return err
			}
			fmt.Printf("Page %d now has %d image mask(s)\n", page, len(candidates))
		case "question":
			candidates, err := det.DetectQuestionRegions(ctx, page)
			if err != nil {
				return err
			}
			if err := sess.RecomputeQuestionMasks(page, candidates); err != nil {
				return err
			}
			fmt.Printf("Page %d now has %d question mask(s)\n", page, len(candidates))
		default:
			return fmt.Errorf("unknown mask kind %q, want image or question", args[2])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recomputeCmd)
}
