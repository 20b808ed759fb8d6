package state

import (
	"fmt"

	"github.com/pagemark/pagemark/internal/geom"
)

// Stage is a page's position in the guided annotation workflow.
// Stages are strictly ordered; advancing goes one step at a time, while
// manual regression to any earlier stage is always permitted.
type Stage int

const (
	// StageImageRegions: create/auto-detect image masks.
	StageImageRegions Stage = iota + 1
	// StageQuestionRegions: create/auto-detect question masks.
	StageQuestionRegions
	// StageAssociation: link image masks to question groups.
	StageAssociation
	// StageOptionLabels: OCR-assisted labeling of image masks.
	StageOptionLabels
	// StageValidation: read-only review of validation findings.
	StageValidation
	// StageApproval: mark the page approved.
	StageApproval
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageImageRegions:
		return "image_regions"
	case StageQuestionRegions:
		return "question_regions"
	case StageAssociation:
		return "association"
	case StageOptionLabels:
		return "option_labels"
	case StageValidation:
		return "validation"
	case StageApproval:
		return "approval"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Valid reports whether s is within the 1..6 range.
func (s Stage) Valid() bool {
	return s >= StageImageRegions && s <= StageApproval
}

// RequireStage rejects a mutation whose required stage exceeds the page's
// current stage.
func (d *DocumentState) RequireStage(page int, need Stage) error {
	p, err := d.Page(page)
	if err != nil {
		return err
	}
	if p.Workflow.Stage < need {
		return fmt.Errorf("%w: page %d is at %s, operation requires %s",
			ErrStageViolation, page, p.Workflow.Stage, need)
	}
	return nil
}

// AdvanceStage moves the page one stage forward and returns the new
// stage. Advancing past approval is a stage violation.
func (d *DocumentState) AdvanceStage(page int) (Stage, error) {
	p, err := d.Page(page)
	if err != nil {
		return 0, err
	}
	if p.Workflow.Stage >= StageApproval {
		return 0, fmt.Errorf("%w: page %d is already at %s", ErrStageViolation, page, StageApproval)
	}
	p.Workflow.Stage++
	d.Touch()
	return p.Workflow.Stage, nil
}

// RegressStage moves the page back to an earlier stage. Any return to
// earlier work invalidates approval.
func (d *DocumentState) RegressStage(page int, to Stage) error {
	p, err := d.Page(page)
	if err != nil {
		return err
	}
	if !to.Valid() || to >= p.Workflow.Stage {
		return fmt.Errorf("%w: cannot regress page %d from %s to %s",
			ErrStageViolation, page, p.Workflow.Stage, to)
	}
	p.Workflow.Stage = to
	p.Approved = false
	p.ApprovalOverride = false
	d.Touch()
	return nil
}

// InvalidateApproval clears a page's approval. Used when a mutation
// belonging to an earlier stage touches an approved page.
func (d *DocumentState) InvalidateApproval(page int) {
	if p, ok := d.Pages[page]; ok && p.Approved {
		p.Approved = false
		p.ApprovalOverride = false
		d.Touch()
	}
}

// CreateMask validates the polygon and attaches a new mask to the page.
func (d *DocumentState) CreateMask(page int, t MaskType, pts []geom.Point) (*Mask, error) {
	p, err := d.Page(page)
	if err != nil {
		return nil, err
	}
	m, err := NewMask(t, pts)
	if err != nil {
		return nil, err
	}
	p.Masks = append(p.Masks, m)
	d.Touch()
	return m, nil
}

// ReplaceImageMasks discards every image mask on the page and installs
// masks built from the candidate polygons. All candidates are validated
// before anything is discarded, so a bad candidate leaves the page as is.
func (d *DocumentState) ReplaceImageMasks(page int, candidates [][]geom.Point) error {
	return d.replaceMasks(page, MaskImage, candidates)
}

// ReplaceQuestionMasks discards every question mask on the page and
// installs masks built from the candidate polygons. Question groups lose
// their entries for the discarded masks; a group emptied by this is
// deleted and its image masks detached.
func (d *DocumentState) ReplaceQuestionMasks(page int, candidates [][]geom.Point) error {
	return d.replaceMasks(page, MaskQuestion, candidates)
}

func (d *DocumentState) replaceMasks(page int, t MaskType, candidates [][]geom.Point) error {
	p, err := d.Page(page)
	if err != nil {
		return err
	}

	fresh := make([]*Mask, 0, len(candidates))
	for _, pts := range candidates {
		m, err := NewMask(t, pts)
		if err != nil {
			return err
		}
		fresh = append(fresh, m)
	}

	kept := make([]*Mask, 0, len(p.Masks))
	var dropped []*Mask
	for _, m := range p.Masks {
		if m.Type == t {
			dropped = append(dropped, m)
		} else {
			kept = append(kept, m)
		}
	}
	p.Masks = append(kept, fresh...)

	if t == MaskQuestion {
		for _, m := range dropped {
			d.pruneGroupMember(m.ID)
		}
	}
	d.Touch()
	return nil
}
