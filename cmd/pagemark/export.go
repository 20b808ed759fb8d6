package main

import (
	"github.com/spf13/cobra"

	"github.com/pagemark/pagemark/internal/api"
	"github.com/pagemark/pagemark/internal/export"
	"github.com/pagemark/pagemark/internal/home"
)

var (
	exportDPI int
	exportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export <pdf>",
	Short: "Export per-mask crops and a manifest",
	Long: `Crop every mask of a fully approved document out of its rendered
pages at the export DPI and write the crops plus a manifest to the
export directory (default <home>/output/<stem>).

Fails before writing anything if any page is unapproved.`,
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

		dpi := exportDPI
		if dpi == 0 {
			dpi = cfg.Export.DPI
		}
		outDir := exportOut
		if outDir == "" {
			if outDir = cfg.Export.OutDir; outDir == "" {
				h, err := home.New(homeDir)
				if err != nil {
					return err
				}
				outDir = h.ExportDir(info.Stem)
			}
		}

		renderer, err := rendererFor(cfg, info.Stem)
		if err != nil {
			return err
		}
		engine := &export.Engine{
			Renderer:  renderer,
			RenderDPI: cfg.Render.DPI,
			Log:       logger,
		}

		manifest, err := engine.Run(ctx, sess.Snapshot(), info.Path, outDir, dpi)
		if err != nil {
			return err
		}
		return api.Output(manifest)
	},
}

func init() {
	exportCmd.Flags().IntVar(&exportDPI, "dpi", 0, "export resolution (default: config export.dpi)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "export directory (default: <home>/output/<stem>)")
	rootCmd.AddCommand(exportCmd)
}
