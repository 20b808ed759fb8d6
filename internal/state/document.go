package state

import (
	"fmt"
	"time"
)

// Workflow is the per-page workflow position.
type Workflow struct {
	Stage Stage `json:"stage"`
	// OCRDone records that the automatic option-label OCR pass has run
	// for this page, so re-entering the labeling stage does not re-run it.
	OCRDone bool `json:"ocr_done,omitempty"`
}

// Page is one page of a document.
type Page struct {
	Number   int      `json:"-"`
	Approved bool     `json:"approved"`
	Workflow Workflow `json:"workflow"`
	Masks    []*Mask  `json:"masks"`
	// ApprovalOverride records that approval was granted despite blocking
	// validation findings, for auditability.
	ApprovalOverride bool `json:"approval_override,omitempty"`
}

// Mask returns the mask with the given id, or nil.
func (p *Page) Mask(id string) *Mask {
	for _, m := range p.Masks {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// MasksOfType returns the page's masks of one type, in creation order.
func (p *Page) MasksOfType(t MaskType) []*Mask {
	var out []*Mask
	for _, m := range p.Masks {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// removeMask drops the mask with the given id. Returns it, or nil.
func (p *Page) removeMask(id string) *Mask {
	for i, m := range p.Masks {
		if m.ID == id {
			p.Masks = append(p.Masks[:i], p.Masks[i+1:]...)
			return m
		}
	}
	return nil
}

// DocumentState aggregates all annotation state for one source document.
// It exclusively owns its Pages, Masks, and QuestionGroups; masks refer
// to groups by id only, resolved through QuestionGroups.
type DocumentState struct {
	PageCount      int
	Pages          map[int]*Page
	QuestionGroups map[string]*QuestionGroup
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewDocumentState creates a fresh state for a document with pageCount
// pages, all at stage 1 with no masks.
func NewDocumentState(pageCount int) *DocumentState {
	now := time.Now().UTC().Truncate(time.Second)
	doc := &DocumentState{
		PageCount:      pageCount,
		Pages:          make(map[int]*Page, pageCount),
		QuestionGroups: make(map[string]*QuestionGroup),
		Metadata:       make(map[string]string),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for n := 1; n <= pageCount; n++ {
		doc.Pages[n] = &Page{
			Number:   n,
			Workflow: Workflow{Stage: StageImageRegions},
			Masks:    []*Mask{},
		}
	}
	return doc
}

// Page returns the page with the given 1-based number.
func (d *DocumentState) Page(n int) (*Page, error) {
	p, ok := d.Pages[n]
	if !ok {
		return nil, fmt.Errorf("%w: page %d of %d", ErrUnknownPage, n, d.PageCount)
	}
	return p, nil
}

// Mask returns the mask with the given id on the given page.
func (d *DocumentState) Mask(page int, id string) (*Mask, error) {
	p, err := d.Page(page)
	if err != nil {
		return nil, err
	}
	m := p.Mask(id)
	if m == nil {
		return nil, fmt.Errorf("%w: mask %s on page %d", ErrUnknownMask, id, page)
	}
	return m, nil
}

// Touch refreshes the updated_at timestamp. Called by every mutation.
func (d *DocumentState) Touch() {
	d.UpdatedAt = time.Now().UTC().Truncate(time.Second)
}

// RemoveMask deletes a mask from a page, detaching any question-group
// bookkeeping that referenced it. Returns false when the mask was absent.
func (d *DocumentState) RemoveMask(page int, id string) (bool, error) {
	p, err := d.Page(page)
	if err != nil {
		return false, err
	}
	m := p.removeMask(id)
	if m == nil {
		return false, nil
	}
	if m.Type == MaskQuestion {
		d.pruneGroupMember(id)
	}
	d.Touch()
	return true, nil
}

// DeleteGroup removes a question group, first clearing question_group_id
// on every mask that referenced it so no dangling ids remain.
func (d *DocumentState) DeleteGroup(id string) {
	if _, ok := d.QuestionGroups[id]; !ok {
		return
	}
	d.detachGroupRefs(id)
	delete(d.QuestionGroups, id)
	d.Touch()
}

// detachGroupRefs clears QuestionGroupID on all masks referencing id.
func (d *DocumentState) detachGroupRefs(id string) {
	for _, p := range d.Pages {
		for _, m := range p.Masks {
			if m.QuestionGroupID == id {
				m.QuestionGroupID = ""
			}
		}
	}
}

// pruneGroupMember removes a deleted question mask from any group and
// deletes groups left with no members.
func (d *DocumentState) pruneGroupMember(maskID string) {
	for gid, g := range d.QuestionGroups {
		if g.RemoveMask(maskID) && len(g.PageMasks) == 0 {
			d.detachGroupRefs(gid)
			delete(d.QuestionGroups, gid)
		}
	}
}

// Clone returns a deep copy of the document state.
func (d *DocumentState) Clone() *DocumentState {
	c := &DocumentState{
		PageCount:      d.PageCount,
		Pages:          make(map[int]*Page, len(d.Pages)),
		QuestionGroups: make(map[string]*QuestionGroup, len(d.QuestionGroups)),
		Metadata:       make(map[string]string, len(d.Metadata)),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for n, p := range d.Pages {
		cp := &Page{
			Number:           p.Number,
			Approved:         p.Approved,
			ApprovalOverride: p.ApprovalOverride,
			Workflow:         p.Workflow,
			Masks:            make([]*Mask, len(p.Masks)),
		}
		for i, m := range p.Masks {
			cp.Masks[i] = m.clone()
		}
		c.Pages[n] = cp
	}
	for id, g := range d.QuestionGroups {
		c.QuestionGroups[id] = g.clone()
	}
	for k, v := range d.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// AllApproved reports whether every page is approved, and the numbers of
// the pages that are not, in ascending order.
func (d *DocumentState) AllApproved() (bool, []int) {
	var unapproved []int
	for n := 1; n <= d.PageCount; n++ {
		if p, ok := d.Pages[n]; !ok || !p.Approved {
			unapproved = append(unapproved, n)
		}
	}
	return len(unapproved) == 0, unapproved
}
