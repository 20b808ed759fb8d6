package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/pagemark/pagemark/internal/geom"
	"github.com/pagemark/pagemark/internal/render"
	"github.com/pagemark/pagemark/internal/session"
	"github.com/pagemark/pagemark/internal/state"
)

// PassOptions configures one automatic labeling pass over a page.
type PassOptions struct {
	Page int
	// DPI the page raster is requested at; must match the coordinate
	// space the masks were drawn in.
	DPI int
	// Overwrite re-labels masks a human already confirmed.
	Overwrite  bool
	MaxRetries uint
	RetryDelay time.Duration
}

// Run recognizes option labels for the image masks on one page and
// records the guesses on the session. Masks with confirmed labels are
// skipped unless Overwrite is set. The pass is cancellable between
// masks; guesses already recorded stay recorded.
func Run(ctx context.Context, sess *session.Session, renderer render.PageRenderer, rec Recognizer, log *slog.Logger, opts PassOptions) error {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 2 * time.Second
	}

	snap := sess.Snapshot()
	p, err := snap.Page(opts.Page)
	if err != nil {
		return err
	}

	var targets []*state.Mask
	for _, m := range p.MasksOfType(state.MaskImage) {
		if m.LabelChecked && !opts.Overwrite {
			continue
		}
		targets = append(targets, m)
	}
	if len(targets) == 0 {
		return sess.MarkOCRDone(opts.Page)
	}

	raster, err := renderer.RenderPage(ctx, opts.Page, opts.DPI)
	if err != nil {
		return fmt.Errorf("rendering page %d for labeling: %w", opts.Page, err)
	}

	for _, m := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		crop, err := render.CropPNG(raster, labelCropBox(m.BBox, opts.DPI))
		if err != nil {
			log.Warn("skipping mask, crop failed", "page", opts.Page, "mask", m.ID, "error", err)
			continue
		}

		var label string
		err = retry.Do(
			func() error {
				var rerr error
				label, _, rerr = rec.Recognize(ctx, crop)
				return rerr
			},
			retry.Context(ctx),
			retry.Attempts(opts.MaxRetries),
			retry.Delay(opts.RetryDelay),
		)
		if err != nil {
			log.Warn("label recognition failed", "page", opts.Page, "mask", m.ID, "error", err)
			continue
		}
		if label == "" {
			log.Debug("no label detected", "page", opts.Page, "mask", m.ID)
			continue
		}
		if err := sess.SetLabelGuess(opts.Page, m.ID, label, opts.Overwrite); err != nil {
			return err
		}
		log.Debug("label guessed", "page", opts.Page, "mask", m.ID, "label", label)
	}

	return sess.MarkOCRDone(opts.Page)
}

// labelCropBox grows tiny masks around their center so the crop has
// enough pixels to recognize a letter. Minimum side is 4pt at the pass
// DPI.
func labelCropBox(box geom.BBox, dpi int) geom.BBox {
	minSide := 4.0 * float64(dpi) / 72.0
	cx := (box.X0 + box.X1) / 2
	cy := (box.Y0 + box.Y1) / 2
	w := box.Width()
	h := box.Height()
	if w < minSide {
		w = minSide
	}
	if h < minSide {
		h = minSide
	}
	return geom.BBox{
		X0: cx - w/2, Y0: cy - h/2,
		X1: cx + w/2, Y1: cy + h/2,
	}
}
