// Package validate derives findings from document state. Checks are pure:
// they never mutate the document, and identical state yields identical
// findings in identical order.
package validate

import (
	"fmt"
	"sort"

	"github.com/pagemark/pagemark/internal/state"
)

// Severity classifies a finding. Blocking findings gate page approval.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityWarning  Severity = "warning"
)

// Kind identifies the check that produced a finding.
type Kind string

const (
	// KindFloatingImage: an image mask with no question group.
	KindFloatingImage Kind = "floating_image"
	// KindUnlabeledImage: an image mask whose label is empty or unconfirmed.
	KindUnlabeledImage Kind = "unlabeled_image"
	// KindQuestionWithoutImages: a question group with no associated image
	// masks anywhere in the document.
	KindQuestionWithoutImages Kind = "question_without_images"
)

// Finding is one validation result tied to a page and, where applicable,
// a mask or group.
type Finding struct {
	Page     int      `json:"page"`
	Severity Severity `json:"severity"`
	Kind     Kind     `json:"kind"`
	MaskID   string   `json:"mask_id,omitempty"`
	GroupID  string   `json:"group_id,omitempty"`
	Message  string   `json:"message"`
}

// Check runs every check over the document and returns the findings
// ordered by page, then kind, then mask/group id. Group findings are
// emitted once per member page so per-page gating sees them.
func Check(doc *state.DocumentState) []Finding {
	var findings []Finding

	for n := 1; n <= doc.PageCount; n++ {
		p, ok := doc.Pages[n]
		if !ok {
			continue
		}
		for _, m := range p.Masks {
			if m.Type != state.MaskImage {
				continue
			}
			if m.QuestionGroupID == "" {
				findings = append(findings, Finding{
					Page:     n,
					Severity: SeverityBlocking,
					Kind:     KindFloatingImage,
					MaskID:   m.ID,
					Message:  fmt.Sprintf("image mask %s on page %d is not associated with any question", m.ID, n),
				})
			}
			if m.OptionLabel == "" || !m.LabelChecked {
				findings = append(findings, Finding{
					Page:     n,
					Severity: SeverityBlocking,
					Kind:     KindUnlabeledImage,
					MaskID:   m.ID,
					Message:  fmt.Sprintf("image mask %s on page %d has no confirmed option label", m.ID, n),
				})
			}
		}
	}

	for gid, g := range doc.QuestionGroups {
		if len(doc.GroupImages(gid)) > 0 {
			continue
		}
		for _, pm := range g.PageMasks {
			findings = append(findings, Finding{
				Page:     pm.Page,
				Severity: SeverityBlocking,
				Kind:     KindQuestionWithoutImages,
				GroupID:  gid,
				Message:  fmt.Sprintf("question group %s has no associated image masks", gid),
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.MaskID != b.MaskID {
			return a.MaskID < b.MaskID
		}
		return a.GroupID < b.GroupID
	})
	return findings
}

// ForPage filters findings down to one page.
func ForPage(findings []Finding, page int) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Page == page {
			out = append(out, f)
		}
	}
	return out
}

// Blocking reports whether any finding in the list is blocking.
func Blocking(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}
