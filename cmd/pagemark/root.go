package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pagemark/pagemark/internal/api"
	"github.com/pagemark/pagemark/internal/config"
	"github.com/pagemark/pagemark/internal/home"
	"github.com/pagemark/pagemark/internal/pdfinfo"
	"github.com/pagemark/pagemark/internal/render"
	"github.com/pagemark/pagemark/internal/session"
	"github.com/pagemark/pagemark/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "pagemark",
	Short: "Exam sheet annotation engine with staged QC workflow",
	Long: `Pagemark manages polygonal mask annotations on exam sheet PDFs and
drives them through a staged quality-control workflow.

Each source PDF gets a sidecar state file holding its masks, question
groups, per-page workflow stage, and approval flags. The workflow:
  1. image regions    - mark answer-option images
  2. question regions - mark question text
  3. association      - link images to questions
  4. option labels    - OCR-assisted A-E labeling
  5. validation       - review findings
  6. approval         - sign off per page

Once every page is approved, export crops each mask at the requested
DPI and writes a manifest describing the artifacts.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pagemark/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "pagemark home directory (default: ~/.pagemark)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func loadConfig() (*config.Config, error) {
	cm, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	return cm.Get(), nil
}

// openSession reads the PDF's identity and binds a session to its
// sidecar file.
func openSession(pdfPath string, logger *slog.Logger) (*session.Session, pdfinfo.Info, error) {
	info, err := pdfinfo.Read(pdfPath)
	if err != nil {
		return nil, pdfinfo.Info{}, err
	}
	sess, err := session.Open(info.Path, info.PageCount, logger)
	if err != nil {
		return nil, pdfinfo.Info{}, err
	}
	return sess, info, nil
}

// pagesDirFor locates a document's pre-rendered pages and detected
// regions, under the configured pages_dir (default <home>/pages/<stem>).
func pagesDirFor(cfg *config.Config, stem string) (string, error) {
	dir := cfg.Render.PagesDir
	if dir == "" {
		h, err := home.New(homeDir)
		if err != nil {
			return "", err
		}
		return h.PagesDir(stem), nil
	}
	return filepath.Join(dir, stem), nil
}

func rendererFor(cfg *config.Config, stem string) (*render.DirRenderer, error) {
	dir, err := pagesDirFor(cfg, stem)
	if err != nil {
		return nil, err
	}
	return &render.DirRenderer{Dir: dir, NativeDPI: cfg.Render.DPI}, nil
}

func detectorFor(cfg *config.Config, stem string) (*render.FileDetector, error) {
	dir, err := pagesDirFor(cfg, stem)
	if err != nil {
		return nil, err
	}
	return &render.FileDetector{Dir: dir}, nil
}
