package state

import (
	"fmt"

	"github.com/google/uuid"
)

// Association manager: maintains the many-to-one relation between image
// masks and question groups, including multi-page question grouping.

// Associate links one or more image masks to the question group of the
// given question mask, creating the group when the mask has none yet.
// Returns the group.
func (d *DocumentState) Associate(page int, imageIDs []string, questionID string) (*QuestionGroup, error) {
	if len(imageIDs) == 0 {
		return nil, fmt.Errorf("%w: associate needs at least one image mask", ErrInvalidOperation)
	}

	q, err := d.Mask(page, questionID)
	if err != nil {
		return nil, err
	}
	if q.Type != MaskQuestion {
		return nil, fmt.Errorf("%w: mask %s is not a question mask", ErrInvalidOperation, questionID)
	}

	images := make([]*Mask, 0, len(imageIDs))
	for _, id := range imageIDs {
		m, err := d.Mask(page, id)
		if err != nil {
			return nil, err
		}
		if m.Type != MaskImage {
			return nil, fmt.Errorf("%w: mask %s is not an image mask", ErrInvalidOperation, id)
		}
		images = append(images, m)
	}

	group := d.QuestionGroups[q.QuestionGroupID]
	if group == nil {
		group = &QuestionGroup{ID: uuid.NewString()}
		if err := group.AddPage(page, questionID); err != nil {
			return nil, err
		}
		d.QuestionGroups[group.ID] = group
		q.QuestionGroupID = group.ID
	}

	for _, m := range images {
		m.QuestionGroupID = group.ID
	}
	d.Touch()
	return group, nil
}

// ExtendGroupToPage appends a question mask on a new page to an existing
// group, for questions spanning multiple pages. Page order within the
// group stays ascending; a second entry for a page the group already
// covers is rejected.
func (d *DocumentState) ExtendGroupToPage(groupID string, page int, questionID string) error {
	group, ok := d.QuestionGroups[groupID]
	if !ok {
		return fmt.Errorf("%w: question group %s", ErrInvalidOperation, groupID)
	}
	q, err := d.Mask(page, questionID)
	if err != nil {
		return err
	}
	if q.Type != MaskQuestion {
		return fmt.Errorf("%w: mask %s is not a question mask", ErrInvalidOperation, questionID)
	}
	if err := group.AddPage(page, questionID); err != nil {
		return err
	}
	q.QuestionGroupID = groupID
	d.Touch()
	return nil
}

// Disassociate clears the group link on an image mask. Groups left
// without any reachable question-mask member are pruned on the next
// PruneOrphanGroups pass, not here.
func (d *DocumentState) Disassociate(page int, imageID string) error {
	m, err := d.Mask(page, imageID)
	if err != nil {
		return err
	}
	if m.Type != MaskImage {
		return fmt.Errorf("%w: mask %s is not an image mask", ErrInvalidOperation, imageID)
	}
	m.QuestionGroupID = ""
	d.Touch()
	return nil
}

// GroupImages returns the image masks associated with a group, keyed by
// page number.
func (d *DocumentState) GroupImages(groupID string) map[int][]*Mask {
	out := make(map[int][]*Mask)
	for n, p := range d.Pages {
		for _, m := range p.Masks {
			if m.Type == MaskImage && m.QuestionGroupID == groupID {
				out[n] = append(out[n], m)
			}
		}
	}
	return out
}

// PruneOrphanGroups deletes groups whose page_masks no longer resolve to
// any existing question mask, detaching image masks that referenced them.
// Dangling group ids on masks (group deleted out from under them) are
// cleared as well. Returns the ids of pruned groups.
func (d *DocumentState) PruneOrphanGroups() []string {
	var pruned []string
	for gid, g := range d.QuestionGroups {
		alive := g.PageMasks[:0]
		for _, pm := range g.PageMasks {
			if p, ok := d.Pages[pm.Page]; ok {
				if m := p.Mask(pm.MaskID); m != nil && m.Type == MaskQuestion {
					alive = append(alive, pm)
				}
			}
		}
		g.PageMasks = alive
		if len(g.PageMasks) == 0 {
			d.detachGroupRefs(gid)
			delete(d.QuestionGroups, gid)
			pruned = append(pruned, gid)
		}
	}

	for _, p := range d.Pages {
		for _, m := range p.Masks {
			if m.QuestionGroupID != "" {
				if _, ok := d.QuestionGroups[m.QuestionGroupID]; !ok {
					m.QuestionGroupID = ""
				}
			}
		}
	}

	if len(pruned) > 0 {
		d.Touch()
	}
	return pruned
}
