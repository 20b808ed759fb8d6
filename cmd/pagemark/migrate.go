package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <pdf>",
	Short: "Migrate a legacy sidecar file to the current schema",
	Long: `Load the sidecar file, applying schema migrations, and save it back
in the current format. Running it on a current-format sidecar rewrites
the file unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		sess, _, err := openSession(args[0], logger)
		if err != nil {
			return err
		}
		// Opening already migrated; persist the current form.
		if err := sess.Flush(); err != nil {
			return err
		}
		fmt.Printf("Migrated %s\n", sess.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
