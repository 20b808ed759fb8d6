// Package render declares the document-rendering and region-detection
// capabilities the annotation engine consumes, plus a renderer backed by
// a directory of pre-rendered page images.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"github.com/pagemark/pagemark/internal/geom"
)

// PageRenderer produces a raster for one page at a requested DPI.
type PageRenderer interface {
	RenderPage(ctx context.Context, page int, dpi int) (image.Image, error)
}

// RegionDetector proposes candidate polygons for a page. Implementations
// wrap external layout-analysis tooling.
type RegionDetector interface {
	DetectImageRegions(ctx context.Context, page int) ([][]geom.Point, error)
	DetectQuestionRegions(ctx context.Context, page int) ([][]geom.Point, error)
}

// FileDetector serves candidate regions precomputed by the layout
// analysis step, one JSON file per page alongside the rasters:
// page-<n>.image-regions.json and page-<n>.question-regions.json, each
// holding a list of polygons as [x, y] pairs in render-DPI pixels.
type FileDetector struct {
	Dir string
}

func (d *FileDetector) DetectImageRegions(ctx context.Context, page int) ([][]geom.Point, error) {
	return d.read(ctx, filepath.Join(d.Dir, fmt.Sprintf("page-%d.image-regions.json", page)))
}

func (d *FileDetector) DetectQuestionRegions(ctx context.Context, page int) ([][]geom.Point, error) {
	return d.read(ctx, filepath.Join(d.Dir, fmt.Sprintf("page-%d.question-regions.json", page)))
}

func (d *FileDetector) read(ctx context.Context, path string) ([][]geom.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no detected regions for %s: %w", filepath.Base(path), err)
	}
	var polys [][][2]float64
	if err := json.Unmarshal(raw, &polys); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	out := make([][]geom.Point, 0, len(polys))
	for _, poly := range polys {
		pts := make([]geom.Point, 0, len(poly))
		for _, p := range poly {
			pts = append(pts, geom.Point{X: p[0], Y: p[1]})
		}
		out = append(out, pts)
	}
	return out, nil
}

// DirRenderer serves page rasters from a directory of pre-rendered
// page-<n>.png files produced at a fixed DPI. Requests at a different
// DPI are served by rescaling.
type DirRenderer struct {
	// Dir holds the page images.
	Dir string
	// NativeDPI is the DPI the images on disk were rendered at.
	NativeDPI int
}

// PagePath returns the expected image file for a page.
func (r *DirRenderer) PagePath(page int) string {
	return filepath.Join(r.Dir, fmt.Sprintf("page-%d.png", page))
}

// RenderPage loads the pre-rendered raster for the page, rescaling it
// when the requested DPI differs from the native one.
func (r *DirRenderer) RenderPage(ctx context.Context, page int, dpi int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := r.PagePath(page)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("no rendered raster for page %d: %w", page, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if dpi == r.NativeDPI || r.NativeDPI == 0 {
		return img, nil
	}

	scale := float64(dpi) / float64(r.NativeDPI)
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("rescaling page %d to %dx%d", page, w, h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst, nil
}

// Crop cuts the bounding region out of a raster, clamped to the raster
// bounds.
func Crop(raster image.Image, box geom.BBox) (image.Image, error) {
	b := raster.Bounds()
	rect := image.Rect(
		int(math.Floor(box.X0)), int(math.Floor(box.Y0)),
		int(math.Ceil(box.X1)), int(math.Ceil(box.Y1)),
	).Intersect(b)
	if rect.Empty() {
		return nil, fmt.Errorf("region %+v lies outside the raster %v", box, b)
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Copy(dst, image.Point{}, raster, rect, xdraw.Src, nil)
	return dst, nil
}

// CropPNG is Crop followed by PNG encoding.
func CropPNG(raster image.Image, box geom.BBox) ([]byte, error) {
	img, err := Crop(raster, box)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding crop: %w", err)
	}
	return buf.Bytes(), nil
}
