package state

import (
	"fmt"

	"github.com/pagemark/pagemark/internal/geom"
)

// Geometry operations over masks. All of them are all-or-nothing: the
// replacement masks are validated before any input mask is removed, so a
// failed operation leaves the document untouched.

// MergeMasks combines two or more masks of the same type on one page into
// a single mask covering their combined bounding region. The inputs are
// deleted; a merged image mask starts unlabeled because its label must be
// re-derived.
func (d *DocumentState) MergeMasks(page int, ids []string) (*Mask, error) {
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: merge needs at least two masks, got %d", ErrInvalidOperation, len(ids))
	}

	p, err := d.Page(page)
	if err != nil {
		return nil, err
	}

	inputs := make([]*Mask, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("%w: mask %s listed twice", ErrInvalidOperation, id)
		}
		seen[id] = true
		m := p.Mask(id)
		if m == nil {
			return nil, fmt.Errorf("%w: mask %s on page %d", ErrUnknownMask, id, page)
		}
		inputs = append(inputs, m)
	}

	t := inputs[0].Type
	box := inputs[0].BBox
	for _, m := range inputs[1:] {
		if m.Type != t {
			return nil, fmt.Errorf("%w: cannot merge %s mask with %s mask", ErrInvalidOperation, t, m.Type)
		}
		box = box.Union(m.BBox)
	}

	merged, err := NewMask(t, box.Points())
	if err != nil {
		return nil, err
	}

	for _, m := range inputs {
		p.removeMask(m.ID)
		if m.Type == MaskQuestion {
			d.pruneGroupMember(m.ID)
		}
	}
	p.Masks = append(p.Masks, merged)
	d.Touch()
	return merged, nil
}

// AddMasks is Merge restricted to exactly two masks: the pair is replaced
// by one mask covering their union bounding region.
func (d *DocumentState) AddMasks(page int, idA, idB string) (*Mask, error) {
	if idA == idB {
		return nil, fmt.Errorf("%w: add needs two distinct masks", ErrInvalidOperation)
	}
	return d.MergeMasks(page, []string{idA, idB})
}

// SplitMask partitions a mask's bounding region into two halves along its
// longer axis at the midpoint. The input is deleted and both halves keep
// its type.
func (d *DocumentState) SplitMask(page int, id string) (*Mask, *Mask, error) {
	p, err := d.Page(page)
	if err != nil {
		return nil, nil, err
	}
	m := p.Mask(id)
	if m == nil {
		return nil, nil, fmt.Errorf("%w: mask %s on page %d", ErrUnknownMask, id, page)
	}

	box := m.BBox
	if box.Width() <= 0 || box.Height() <= 0 {
		return nil, nil, fmt.Errorf("%w: mask %s has a degenerate bounding box", ErrInvalidOperation, id)
	}

	var first, second geom.BBox
	if box.Width() > box.Height() {
		mid := box.X0 + box.Width()/2
		first = geom.BBox{X0: box.X0, Y0: box.Y0, X1: mid, Y1: box.Y1}
		second = geom.BBox{X0: mid, Y0: box.Y0, X1: box.X1, Y1: box.Y1}
	} else {
		mid := box.Y0 + box.Height()/2
		first = geom.BBox{X0: box.X0, Y0: box.Y0, X1: box.X1, Y1: mid}
		second = geom.BBox{X0: box.X0, Y0: mid, X1: box.X1, Y1: box.Y1}
	}

	a, err := NewMask(m.Type, first.Points())
	if err != nil {
		return nil, nil, err
	}
	b, err := NewMask(m.Type, second.Points())
	if err != nil {
		return nil, nil, err
	}

	p.removeMask(id)
	if m.Type == MaskQuestion {
		d.pruneGroupMember(id)
	}
	p.Masks = append(p.Masks, a, b)
	d.Touch()
	return a, b, nil
}

// ExpandMask grows a mask's bounding region by delta on all sides,
// clamped to the page bounds, keeping the same mask id. A non-positive
// delta is a no-op rather than an error.
func (d *DocumentState) ExpandMask(page int, id string, delta float64, bounds geom.BBox) error {
	if delta <= 0 {
		return nil
	}
	m, err := d.Mask(page, id)
	if err != nil {
		return err
	}
	box := m.BBox.Expand(delta).Clamp(bounds)
	if err := m.SetPoints(box.Points()); err != nil {
		return err
	}
	d.Touch()
	return nil
}
