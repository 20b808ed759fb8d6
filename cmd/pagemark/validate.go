package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagemark/pagemark/internal/api"
	"github.com/pagemark/pagemark/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pdf>",
	Short: "Run validation and print the findings",
	Long: `Run validation over the document state and print every finding.
Exits non-zero while blocking findings remain, so it can gate scripted
export pipelines.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		sess, _, err := openSession(args[0], logger)
		if err != nil {
			return err
		}

		findings, err := sess.Validate()
		if err != nil {
			return err
		}
		if err := api.Output(map[string]any{
			"findings": findings,
			"blocking": validate.Blocking(findings),
		}); err != nil {
			return err
		}
		if validate.Blocking(findings) {
			return fmt.Errorf("%d finding(s), blocking findings remain", len(findings))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
