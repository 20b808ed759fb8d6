package state

import (
	"errors"
	"testing"

	"github.com/pagemark/pagemark/internal/geom"
)

func TestAssociate(t *testing.T) {
	t.Run("creates group and links images", func(t *testing.T) {
		d := newDoc(t, 1)
		q := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
		a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})
		b := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 40, Y0: 0, X1: 50, Y1: 10})

		g, err := d.Associate(1, []string{a.ID, b.ID}, q.ID)
		if err != nil {
			t.Fatalf("Associate: %v", err)
		}
		if q.QuestionGroupID != g.ID {
			t.Error("question mask should carry the group id")
		}
		if a.QuestionGroupID != g.ID || b.QuestionGroupID != g.ID {
			t.Error("image masks should carry the group id")
		}
		if !g.HasPage(1) {
			t.Error("group should cover page 1")
		}
	})

	t.Run("reuses existing group", func(t *testing.T) {
		d := newDoc(t, 1)
		q := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
		a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})
		b := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 40, Y0: 0, X1: 50, Y1: 10})

		g1, err := d.Associate(1, []string{a.ID}, q.ID)
		if err != nil {
			t.Fatalf("first Associate: %v", err)
		}
		g2, err := d.Associate(1, []string{b.ID}, q.ID)
		if err != nil {
			t.Fatalf("second Associate: %v", err)
		}
		if g1.ID != g2.ID {
			t.Errorf("second associate created group %s, want reuse of %s", g2.ID, g1.ID)
		}
		if len(d.QuestionGroups) != 1 {
			t.Errorf("groups = %d, want 1", len(d.QuestionGroups))
		}
	})

	t.Run("rejects wrong mask types", func(t *testing.T) {
		d := newDoc(t, 1)
		q := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
		img := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})

		if _, err := d.Associate(1, []string{q.ID}, q.ID); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("question as image: error = %v, want ErrInvalidOperation", err)
		}
		if _, err := d.Associate(1, []string{img.ID}, img.ID); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("image as question: error = %v, want ErrInvalidOperation", err)
		}
	})
}

func TestExtendGroupToPage(t *testing.T) {
	d := newDoc(t, 2)
	q1 := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
	img := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})
	q2 := mustMask(t, d, 2, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})

	g, err := d.Associate(1, []string{img.ID}, q1.ID)
	if err != nil {
		t.Fatalf("Associate: %v", err)
	}
	if err := d.ExtendGroupToPage(g.ID, 2, q2.ID); err != nil {
		t.Fatalf("ExtendGroupToPage: %v", err)
	}
	if q2.QuestionGroupID != g.ID {
		t.Error("extended question mask should carry the group id")
	}
	if len(g.PageMasks) != 2 || g.PageMasks[0].Page != 1 || g.PageMasks[1].Page != 2 {
		t.Errorf("page_masks = %+v, want pages [1 2]", g.PageMasks)
	}

	q2b := mustMask(t, d, 2, MaskQuestion, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})
	if err := d.ExtendGroupToPage(g.ID, 2, q2b.ID); !errors.Is(err, ErrDuplicatePage) {
		t.Errorf("second entry for page 2: error = %v, want ErrDuplicatePage", err)
	}
}

func TestDisassociate(t *testing.T) {
	d := newDoc(t, 1)
	q := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
	img := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})
	if _, err := d.Associate(1, []string{img.ID}, q.ID); err != nil {
		t.Fatalf("Associate: %v", err)
	}

	if err := d.Disassociate(1, img.ID); err != nil {
		t.Fatalf("Disassociate: %v", err)
	}
	if img.QuestionGroupID != "" {
		t.Error("image mask should be detached")
	}
	if len(d.QuestionGroups) != 1 {
		t.Error("group with a live question mask must survive")
	}
}

func TestPruneOrphanGroups(t *testing.T) {
	d := newDoc(t, 1)
	q := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
	img := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})
	g, err := d.Associate(1, []string{img.ID}, q.ID)
	if err != nil {
		t.Fatalf("Associate: %v", err)
	}

	// Removing the question mask through the document already prunes.
	if _, err := d.RemoveMask(1, q.ID); err != nil {
		t.Fatalf("RemoveMask: %v", err)
	}
	if _, ok := d.QuestionGroups[g.ID]; ok {
		t.Fatal("group emptied by mask removal should be gone")
	}
	if img.QuestionGroupID != "" {
		t.Error("image mask should be detached from the pruned group")
	}

	// A group injected with stale members is cleaned up by the sweep.
	stale := &QuestionGroup{ID: "stale", PageMasks: []PageMask{{Page: 1, MaskID: "gone"}}}
	d.QuestionGroups[stale.ID] = stale
	img.QuestionGroupID = stale.ID

	pruned := d.PruneOrphanGroups()
	if len(pruned) != 1 || pruned[0] != "stale" {
		t.Errorf("pruned = %v, want [stale]", pruned)
	}
	if img.QuestionGroupID != "" {
		t.Error("dangling group ref on image mask should be cleared")
	}
}

func TestGroupImages(t *testing.T) {
	d := newDoc(t, 2)
	q := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
	a := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})
	b := mustMask(t, d, 2, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})

	g, err := d.Associate(1, []string{a.ID}, q.ID)
	if err != nil {
		t.Fatalf("Associate: %v", err)
	}
	b.QuestionGroupID = g.ID

	byPage := d.GroupImages(g.ID)
	if len(byPage[1]) != 1 || len(byPage[2]) != 1 {
		t.Errorf("images by page = %v, want one per page", byPage)
	}
}
