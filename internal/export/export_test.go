package export

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pagemark/pagemark/internal/geom"
	"github.com/pagemark/pagemark/internal/state"
)

type fakeRenderer struct {
	w, h    int
	renders int
}

func (r *fakeRenderer) RenderPage(ctx context.Context, page, dpi int) (image.Image, error) {
	r.renders++
	img := image.NewRGBA(image.Rect(0, 0, r.w, r.h))
	for y := 0; y < r.h; y++ {
		for x := 0; x < r.w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img, nil
}

func testEngine(w, h int) *Engine {
	return &Engine{
		Renderer:  &fakeRenderer{w: w, h: h},
		RenderDPI: 150,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func approvedDoc(t *testing.T) (*state.DocumentState, *state.Mask) {
	t.Helper()
	doc := state.NewDocumentState(1)
	m, err := doc.CreateMask(1, state.MaskImage, geom.BBox{X0: 10, Y0: 10, X1: 20, Y1: 20}.Points())
	if err != nil {
		t.Fatalf("CreateMask: %v", err)
	}
	m.OptionLabel = "A"
	m.LabelChecked = true
	doc.Pages[1].Workflow.Stage = state.StageApproval
	doc.Pages[1].Approved = true
	return doc, m
}

func TestRun_ScalesToExportDPI(t *testing.T) {
	doc, m := approvedDoc(t)
	outDir := t.TempDir()

	manifest, err := testEngine(200, 200).Run(context.Background(), doc, "/exams/math.pdf", outDir, 300)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if manifest.PDFStem != "math" || manifest.ExportDPI != 300 {
		t.Errorf("manifest identity = %q dpi %d", manifest.PDFStem, manifest.ExportDPI)
	}
	if manifest.TotalPages != 1 || manifest.TotalMasks != 1 {
		t.Fatalf("totals = %d pages, %d masks", manifest.TotalPages, manifest.TotalMasks)
	}

	entry := manifest.ExportedMasks[0]
	if entry.BBox != (geom.BBox{X0: 20, Y0: 20, X1: 40, Y1: 40}) {
		t.Errorf("scaled bbox = %+v, want {20 20 40 40}", entry.BBox)
	}
	if entry.SourceBBox != m.BBox {
		t.Errorf("source bbox = %+v, want %+v", entry.SourceBBox, m.BBox)
	}
	if entry.Path != MaskFileName(1, m.ID) {
		t.Errorf("path = %q, want %q", entry.Path, MaskFileName(1, m.ID))
	}

	if _, err := os.Stat(filepath.Join(outDir, entry.Path)); err != nil {
		t.Errorf("crop file: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(outDir, ManifestName))
	if err != nil {
		t.Fatalf("manifest file: %v", err)
	}
	var reread Manifest
	if err := json.Unmarshal(raw, &reread); err != nil {
		t.Fatalf("manifest JSON: %v", err)
	}
	if reread.TotalMasks != 1 {
		t.Errorf("reread manifest masks = %d, want 1", reread.TotalMasks)
	}
}

func TestRun_NotApprovedWritesNothing(t *testing.T) {
	doc, _ := approvedDoc(t)
	doc.Pages[1].Approved = false
	outDir := filepath.Join(t.TempDir(), "out")

	if _, err := testEngine(200, 200).Run(context.Background(), doc, "math.pdf", outDir, 300); !errors.Is(err, state.ErrNotApproved) {
		t.Fatalf("error = %v, want ErrNotApproved", err)
	}
	if _, err := os.Stat(outDir); !errors.Is(err, os.ErrNotExist) {
		t.Error("a failed precondition must not create the export directory")
	}
}

func TestRun_Idempotent(t *testing.T) {
	doc, _ := approvedDoc(t)
	outDir := t.TempDir()
	engine := testEngine(200, 200)

	first, err := engine.Run(context.Background(), doc, "math.pdf", outDir, 300)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := engine.Run(context.Background(), doc, "math.pdf", outDir, 300)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("manifests differ:\n%+v\nvs\n%+v", first, second)
	}
}

func TestRun_Cancelled(t *testing.T) {
	doc, _ := approvedDoc(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testEngine(200, 200).Run(ctx, doc, "math.pdf", t.TempDir(), 300); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRun_EmptyPagesSkipRendering(t *testing.T) {
	doc := state.NewDocumentState(2)
	for n := 1; n <= 2; n++ {
		doc.Pages[n].Workflow.Stage = state.StageApproval
		doc.Pages[n].Approved = true
	}
	r := &fakeRenderer{w: 100, h: 100}
	engine := &Engine{Renderer: r, RenderDPI: 150, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	manifest, err := engine.Run(context.Background(), doc, "math.pdf", t.TempDir(), 150)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if manifest.TotalMasks != 0 {
		t.Errorf("masks = %d, want 0", manifest.TotalMasks)
	}
	if r.renders != 0 {
		t.Errorf("renders = %d, want 0 for empty pages", r.renders)
	}
}
