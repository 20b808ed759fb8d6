package state

import (
	"encoding/json"
	"fmt"
	"sort"
)

// PageMask identifies one question mask belonging to a group: the page it
// lives on and its mask id. Serialized as a [page_number, mask_id] pair.
type PageMask struct {
	Page   int
	MaskID string
}

// MarshalJSON encodes the entry as [page_number, mask_id].
func (p PageMask) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Page, p.MaskID})
}

// UnmarshalJSON decodes a [page_number, mask_id] pair.
func (p *PageMask) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("page_masks entry must be a [page, mask_id] pair: %w", err)
	}
	if err := json.Unmarshal(pair[0], &p.Page); err != nil {
		return fmt.Errorf("page_masks entry page: %w", err)
	}
	if err := json.Unmarshal(pair[1], &p.MaskID); err != nil {
		return fmt.Errorf("page_masks entry mask id: %w", err)
	}
	return nil
}

// QuestionGroup represents one logical question, possibly spanning
// multiple pages. PageMasks holds the question masks composing it,
// ordered by ascending page number with at most one entry per page.
type QuestionGroup struct {
	ID        string     `json:"-"`
	PageMasks []PageMask `json:"page_masks"`
}

// AddPage inserts a (page, mask) entry keeping ascending page order.
func (g *QuestionGroup) AddPage(page int, maskID string) error {
	for _, pm := range g.PageMasks {
		if pm.Page == page {
			return fmt.Errorf("%w: group %s already covers page %d", ErrDuplicatePage, g.ID, page)
		}
	}
	g.PageMasks = append(g.PageMasks, PageMask{Page: page, MaskID: maskID})
	sort.Slice(g.PageMasks, func(i, j int) bool {
		return g.PageMasks[i].Page < g.PageMasks[j].Page
	})
	return nil
}

// RemoveMask drops the entry for the given mask, if present.
// Returns true when an entry was removed.
func (g *QuestionGroup) RemoveMask(maskID string) bool {
	for i, pm := range g.PageMasks {
		if pm.MaskID == maskID {
			g.PageMasks = append(g.PageMasks[:i], g.PageMasks[i+1:]...)
			return true
		}
	}
	return false
}

// HasPage reports whether the group has a member on the given page.
func (g *QuestionGroup) HasPage(page int) bool {
	for _, pm := range g.PageMasks {
		if pm.Page == page {
			return true
		}
	}
	return false
}

// clone returns a deep copy of the group.
func (g *QuestionGroup) clone() *QuestionGroup {
	c := &QuestionGroup{ID: g.ID, PageMasks: make([]PageMask, len(g.PageMasks))}
	copy(c.PageMasks, g.PageMasks)
	return c
}
