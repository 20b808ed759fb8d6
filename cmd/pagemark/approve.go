package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	approveAll      bool
	approveOverride bool
)

var approveCmd = &cobra.Command{
	Use:   "approve <pdf> [page]",
	Short: "Approve a page, or all pages with --all",
	Long: `Mark a page approved. The page must be at the approval stage with no
blocking validation findings; --override approves anyway and records the
override in the sidecar for auditability.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		sess, _, err := openSession(args[0], logger)
		if err != nil {
			return err
		}

		if approveAll {
			if len(args) > 1 {
				return fmt.Errorf("--all does not take a page argument")
			}
			if err := sess.ApproveAll(approveOverride); err != nil {
				return err
			}
			fmt.Println("All pages approved")
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("a page number (or --all) is required")
		}
		page, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid page number %q", args[1])
		}
		if err := sess.Approve(page, approveOverride); err != nil {
			return err
		}
		fmt.Printf("Page %d approved\n", page)
		return nil
	},
}

func init() {
	approveCmd.Flags().BoolVar(&approveAll, "all", false, "approve every page at the approval stage")
	approveCmd.Flags().BoolVar(&approveOverride, "override", false, "approve despite blocking findings (recorded)")
	rootCmd.AddCommand(approveCmd)
}
