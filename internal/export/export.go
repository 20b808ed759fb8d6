// Package export turns fully approved document state into per-mask
// cropped images plus a manifest recording provenance and coordinate
// scaling.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pagemark/pagemark/internal/geom"
	"github.com/pagemark/pagemark/internal/pdfinfo"
	"github.com/pagemark/pagemark/internal/render"
	"github.com/pagemark/pagemark/internal/state"
)

// ManifestName is the manifest filename inside the export directory.
const ManifestName = "manifest.json"

// ExportedMask is one manifest entry. Bounding box and points are in the
// export coordinate space; the source fields are the values as annotated.
type ExportedMask struct {
	Page         int          `json:"page"`
	MaskID       string       `json:"mask_id"`
	Type         string       `json:"type"`
	OptionLabel  string       `json:"option_label,omitempty"`
	BBox         geom.BBox    `json:"bbox"`
	Points       []geom.Point `json:"points"`
	SourceBBox   geom.BBox    `json:"source_bbox"`
	SourcePoints []geom.Point `json:"source_points"`
	Path         string       `json:"path"`
}

// Manifest summarizes one export run.
type Manifest struct {
	PDFPath       string         `json:"pdf_path"`
	PDFStem       string         `json:"pdf_stem"`
	ExportDPI     int            `json:"export_dpi"`
	TotalPages    int            `json:"total_pages"`
	TotalMasks    int            `json:"total_masks"`
	ExportedMasks []ExportedMask `json:"exported_masks"`
}

// Engine crops approved masks out of rendered pages.
type Engine struct {
	Renderer render.PageRenderer
	// RenderDPI is the DPI of the coordinate space masks were drawn in.
	RenderDPI int
	Log       *slog.Logger
}

// Run exports every mask of the document to outDir at exportDPI. Every
// page must be approved; otherwise it fails with ErrNotApproved before
// writing anything. Re-running with unchanged state overwrites prior
// artifacts, and cancellation between masks leaves the artifacts written
// so far valid.
func (e *Engine) Run(ctx context.Context, doc *state.DocumentState, pdfPath, outDir string, exportDPI int) (*Manifest, error) {
	if ok, unapproved := doc.AllApproved(); !ok {
		return nil, fmt.Errorf("%w: pages %v", state.ErrNotApproved, unapproved)
	}
	if exportDPI <= 0 || e.RenderDPI <= 0 {
		return nil, fmt.Errorf("invalid DPI: export %d, render %d", exportDPI, e.RenderDPI)
	}
	scale := float64(exportDPI) / float64(e.RenderDPI)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory %s: %w", outDir, err)
	}

	manifest := &Manifest{
		PDFPath:       pdfPath,
		PDFStem:       pdfinfo.Stem(pdfPath),
		ExportDPI:     exportDPI,
		TotalPages:    doc.PageCount,
		ExportedMasks: []ExportedMask{},
	}

	for n := 1; n <= doc.PageCount; n++ {
		p, err := doc.Page(n)
		if err != nil {
			return nil, err
		}
		if len(p.Masks) == 0 {
			continue
		}

		raster, err := e.Renderer.RenderPage(ctx, n, exportDPI)
		if err != nil {
			return nil, fmt.Errorf("rendering page %d: %w", n, err)
		}

		for _, m := range p.Masks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			scaledBox := m.BBox.Scale(scale)
			scaledPts := geom.ScalePoints(m.Points, scale)

			crop, err := render.Crop(raster, scaledBox)
			if err != nil {
				return nil, fmt.Errorf("cropping mask %s on page %d: %w", m.ID, n, err)
			}
			name := MaskFileName(n, m.ID)
			path := filepath.Join(outDir, name)
			if err := writePNG(path, crop); err != nil {
				return nil, err
			}

			manifest.ExportedMasks = append(manifest.ExportedMasks, ExportedMask{
				Page:         n,
				MaskID:       m.ID,
				Type:         string(m.Type),
				OptionLabel:  m.OptionLabel,
				BBox:         scaledBox,
				Points:       scaledPts,
				SourceBBox:   m.BBox,
				SourcePoints: m.Points,
				Path:         name,
			})
			e.Log.Debug("mask exported", "page", n, "mask", m.ID, "path", path)
		}
	}
	manifest.TotalMasks = len(manifest.ExportedMasks)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(filepath.Join(outDir, ManifestName), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	e.Log.Info("export complete", "out", outDir, "pages", manifest.TotalPages, "masks", manifest.TotalMasks, "dpi", exportDPI)
	return manifest, nil
}

// MaskFileName is the deterministic artifact name for one mask.
func MaskFileName(page int, maskID string) string {
	return fmt.Sprintf("page-%d-mask-%s.png", page, maskID)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
