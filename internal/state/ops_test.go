package state

import (
	"errors"
	"testing"

	"github.com/pagemark/pagemark/internal/geom"
)

func newDoc(t *testing.T, pages int) *DocumentState {
	t.Helper()
	return NewDocumentState(pages)
}

func mustMask(t *testing.T, d *DocumentState, page int, mt MaskType, box geom.BBox) *Mask {
	t.Helper()
	m, err := d.CreateMask(page, mt, box.Points())
	if err != nil {
		t.Fatalf("CreateMask(%v): %v", box, err)
	}
	return m
}

func TestMergeMasks(t *testing.T) {
	t.Run("two image masks yield union bbox", func(t *testing.T) {
		d := newDoc(t, 1)
		a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
		b := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})

		merged, err := d.MergeMasks(1, []string{a.ID, b.ID})
		if err != nil {
			t.Fatalf("MergeMasks: %v", err)
		}
		if merged.BBox != (geom.BBox{X0: 0, Y0: 0, X1: 30, Y1: 10}) {
			t.Errorf("merged bbox = %+v, want {0 0 30 10}", merged.BBox)
		}

		page := d.Pages[1]
		if len(page.Masks) != 1 {
			t.Fatalf("page has %d masks, want 1", len(page.Masks))
		}
		if page.Mask(a.ID) != nil || page.Mask(b.ID) != nil {
			t.Error("original masks should be removed")
		}
	})

	t.Run("merged image mask loses its label", func(t *testing.T) {
		d := newDoc(t, 1)
		a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
		a.OptionLabel = "A"
		a.LabelChecked = true
		b := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 5, Y0: 5, X1: 15, Y1: 15})

		merged, err := d.MergeMasks(1, []string{a.ID, b.ID})
		if err != nil {
			t.Fatalf("MergeMasks: %v", err)
		}
		if merged.OptionLabel != "" || merged.LabelChecked {
			t.Errorf("merged mask kept label %q checked=%v", merged.OptionLabel, merged.LabelChecked)
		}
	})

	t.Run("mixed types rejected", func(t *testing.T) {
		d := newDoc(t, 1)
		a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
		b := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})

		if _, err := d.MergeMasks(1, []string{a.ID, b.ID}); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("error = %v, want ErrInvalidOperation", err)
		}
		if len(d.Pages[1].Masks) != 2 {
			t.Error("failed merge must leave the page unchanged")
		}
	})

	t.Run("single mask rejected", func(t *testing.T) {
		d := newDoc(t, 1)
		a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
		if _, err := d.MergeMasks(1, []string{a.ID}); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("error = %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("unknown mask rejected", func(t *testing.T) {
		d := newDoc(t, 1)
		a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
		if _, err := d.MergeMasks(1, []string{a.ID, "nope"}); !errors.Is(err, ErrUnknownMask) {
			t.Errorf("error = %v, want ErrUnknownMask", err)
		}
	})
}

func TestAddMasks(t *testing.T) {
	d := newDoc(t, 1)
	a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
	b := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 5, X1: 25, Y1: 12})

	added, err := d.AddMasks(1, a.ID, b.ID)
	if err != nil {
		t.Fatalf("AddMasks: %v", err)
	}
	if added.BBox != (geom.BBox{X0: 0, Y0: 0, X1: 25, Y1: 12}) {
		t.Errorf("added bbox = %+v", added.BBox)
	}

	if _, err := d.AddMasks(1, added.ID, added.ID); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("same-mask add error = %v, want ErrInvalidOperation", err)
	}
}

func TestSplitMask(t *testing.T) {
	t.Run("wide mask splits along x", func(t *testing.T) {
		d := newDoc(t, 1)
		m := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 40, Y1: 10})

		a, b, err := d.SplitMask(1, m.ID)
		if err != nil {
			t.Fatalf("SplitMask: %v", err)
		}
		if a.BBox != (geom.BBox{X0: 0, Y0: 0, X1: 20, Y1: 10}) {
			t.Errorf("first half bbox = %+v", a.BBox)
		}
		if b.BBox != (geom.BBox{X0: 20, Y0: 0, X1: 40, Y1: 10}) {
			t.Errorf("second half bbox = %+v", b.BBox)
		}
		if a.Type != MaskQuestion || b.Type != MaskQuestion {
			t.Error("split must preserve mask type")
		}
		if d.Pages[1].Mask(m.ID) != nil {
			t.Error("original mask should be removed")
		}
	})

	t.Run("tall mask splits along y", func(t *testing.T) {
		d := newDoc(t, 1)
		m := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 30})

		a, b, err := d.SplitMask(1, m.ID)
		if err != nil {
			t.Fatalf("SplitMask: %v", err)
		}
		if a.BBox.Y1 != 15 || b.BBox.Y0 != 15 {
			t.Errorf("split at y: %+v / %+v, want midpoint 15", a.BBox, b.BBox)
		}
	})
}

func TestExpandMask(t *testing.T) {
	bounds := geom.BBox{X0: 0, Y0: 0, X1: 100, Y1: 100}

	t.Run("grows and clamps", func(t *testing.T) {
		d := newDoc(t, 1)
		m := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 2, Y0: 10, X1: 90, Y1: 20})

		if err := d.ExpandMask(1, m.ID, 15, bounds); err != nil {
			t.Fatalf("ExpandMask: %v", err)
		}
		want := geom.BBox{X0: 0, Y0: 0, X1: 100, Y1: 35}
		if m.BBox != want {
			t.Errorf("bbox = %+v, want %+v", m.BBox, want)
		}
	})

	t.Run("non-positive delta is a noop", func(t *testing.T) {
		d := newDoc(t, 1)
		m := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 10, Y0: 10, X1: 20, Y1: 20})
		before := m.BBox

		if err := d.ExpandMask(1, m.ID, 0, bounds); err != nil {
			t.Fatalf("ExpandMask(0): %v", err)
		}
		if m.BBox != before {
			t.Errorf("bbox changed on zero delta: %+v", m.BBox)
		}
	})

	t.Run("same id after expand", func(t *testing.T) {
		d := newDoc(t, 1)
		m := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 10, Y0: 10, X1: 20, Y1: 20})
		id := m.ID

		if err := d.ExpandMask(1, id, 5, bounds); err != nil {
			t.Fatalf("ExpandMask: %v", err)
		}
		if d.Pages[1].Mask(id) == nil {
			t.Error("mask id must survive expand")
		}
	})
}

func TestCreateMask_RejectsBadPolygons(t *testing.T) {
	d := newDoc(t, 1)

	tests := []struct {
		name string
		pts  []geom.Point
	}{
		{"too few points", []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}},
		{"self intersecting", []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10}}},
		{"zero area", []geom.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := d.CreateMask(1, MaskImage, tt.pts); !errors.Is(err, ErrInvalidOperation) {
				t.Errorf("error = %v, want ErrInvalidOperation", err)
			}
			if len(d.Pages[1].Masks) != 0 {
				t.Error("rejected mask must not be attached")
			}
		})
	}
}
