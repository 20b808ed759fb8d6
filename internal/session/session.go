// Package session owns the live document state for one source document.
// All mutations go through the session, which serializes them, enforces
// workflow-stage gating, and persists after every successful mutation.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pagemark/pagemark/internal/geom"
	"github.com/pagemark/pagemark/internal/state"
	"github.com/pagemark/pagemark/internal/store"
	"github.com/pagemark/pagemark/internal/validate"
)

// ErrBlockedByFindings reports an approval attempted while blocking
// validation findings remain and no override was given.
var ErrBlockedByFindings = errors.New("blocking validation findings remain")

// Session binds a document state to its sidecar file. Mutations are
// serialized; no two mutations apply concurrently. A failed save is
// surfaced to the caller but the in-memory state stands, so the next
// successful save catches up.
type Session struct {
	mu   sync.Mutex
	doc  *state.DocumentState
	path string
	log  *slog.Logger
}

// Open loads (or freshly creates) the state for the document at docPath,
// which has pageCount pages, from its sidecar file.
func Open(docPath string, pageCount int, log *slog.Logger) (*Session, error) {
	sidecar := store.SidecarPath(docPath)
	doc, err := store.Load(sidecar, pageCount)
	if err != nil {
		return nil, err
	}
	log.Debug("session opened", "sidecar", sidecar, "pages", doc.PageCount)
	return &Session{doc: doc, path: sidecar, log: log}, nil
}

// Path returns the sidecar file path.
func (s *Session) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current state, safe to read while
// mutations continue.
func (s *Session) Snapshot() *state.DocumentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// save persists under the lock. Mutations already applied stay in memory
// even when the save fails.
func (s *Session) save() error {
	if err := store.Save(s.path, s.doc); err != nil {
		s.log.Error("save failed, in-memory state retained", "sidecar", s.path, "error", err)
		return err
	}
	return nil
}

func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	return s.save()
}

// stageFor maps a mask type to the stage that owns edits of that type.
func stageFor(t state.MaskType) state.Stage {
	if t == state.MaskQuestion {
		return state.StageQuestionRegions
	}
	return state.StageImageRegions
}

// CreateMask adds a mask to a page. Question masks require the page to
// have reached the question-regions stage.
func (s *Session) CreateMask(page int, t state.MaskType, pts []geom.Point) (*state.Mask, error) {
	var created *state.Mask
	err := s.mutate(func() error {
		if err := s.doc.RequireStage(page, stageFor(t)); err != nil {
			return err
		}
		m, err := s.doc.CreateMask(page, t, pts)
		if err != nil {
			return err
		}
		created = m
		s.doc.InvalidateApproval(page)
		return nil
	})
	return created, err
}

// RemoveMask deletes a mask. Returns false when it was already absent.
func (s *Session) RemoveMask(page int, id string) (bool, error) {
	var removed bool
	err := s.mutate(func() error {
		m, err := s.doc.Mask(page, id)
		if err != nil {
			if errors.Is(err, state.ErrUnknownMask) {
				return nil
			}
			return err
		}
		if err := s.doc.RequireStage(page, stageFor(m.Type)); err != nil {
			return err
		}
		removed, err = s.doc.RemoveMask(page, id)
		if err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
	return removed, err
}

// Merge combines two or more same-type masks into one.
func (s *Session) Merge(page int, ids []string) (*state.Mask, error) {
	var merged *state.Mask
	err := s.mutate(func() error {
		need, err := s.stageForMasks(page, ids)
		if err != nil {
			return err
		}
		if err := s.doc.RequireStage(page, need); err != nil {
			return err
		}
		merged, err = s.doc.MergeMasks(page, ids)
		if err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
	return merged, err
}

// Add combines exactly two masks into one covering their union region.
func (s *Session) Add(page int, idA, idB string) (*state.Mask, error) {
	var added *state.Mask
	err := s.mutate(func() error {
		need, err := s.stageForMasks(page, []string{idA, idB})
		if err != nil {
			return err
		}
		if err := s.doc.RequireStage(page, need); err != nil {
			return err
		}
		added, err = s.doc.AddMasks(page, idA, idB)
		if err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
	return added, err
}

// Split halves a mask along its longer axis.
func (s *Session) Split(page int, id string) (*state.Mask, *state.Mask, error) {
	var a, b *state.Mask
	err := s.mutate(func() error {
		need, err := s.stageForMasks(page, []string{id})
		if err != nil {
			return err
		}
		if err := s.doc.RequireStage(page, need); err != nil {
			return err
		}
		a, b, err = s.doc.SplitMask(page, id)
		if err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
	return a, b, err
}

// Expand grows a mask by delta on all sides, clamped to bounds.
func (s *Session) Expand(page int, id string, delta float64, bounds geom.BBox) error {
	return s.mutate(func() error {
		need, err := s.stageForMasks(page, []string{id})
		if err != nil {
			return err
		}
		if err := s.doc.RequireStage(page, need); err != nil {
			return err
		}
		if err := s.doc.ExpandMask(page, id, delta, bounds); err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
}

func (s *Session) stageForMasks(page int, ids []string) (state.Stage, error) {
	need := state.StageImageRegions
	for _, id := range ids {
		m, err := s.doc.Mask(page, id)
		if err != nil {
			return 0, err
		}
		if st := stageFor(m.Type); st > need {
			need = st
		}
	}
	return need, nil
}

// RecomputeImageMasks is the stage-1 destructive action: it discards
// every image mask on the page and installs the candidate polygons.
func (s *Session) RecomputeImageMasks(page int, candidates [][]geom.Point) error {
	return s.mutate(func() error {
		if err := s.doc.ReplaceImageMasks(page, candidates); err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
}

// RecomputeQuestionMasks is the stage-2 destructive action. Question
// groups whose members are discarded here are pruned, and image masks
// pointing at pruned groups are detached.
func (s *Session) RecomputeQuestionMasks(page int, candidates [][]geom.Point) error {
	return s.mutate(func() error {
		if err := s.doc.RequireStage(page, state.StageQuestionRegions); err != nil {
			return err
		}
		if err := s.doc.ReplaceQuestionMasks(page, candidates); err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
}

// Associate links image masks to a question mask's group.
func (s *Session) Associate(page int, imageIDs []string, questionID string) (*state.QuestionGroup, error) {
	var group *state.QuestionGroup
	err := s.mutate(func() error {
		if err := s.doc.RequireStage(page, state.StageAssociation); err != nil {
			return err
		}
		g, err := s.doc.Associate(page, imageIDs, questionID)
		if err != nil {
			return err
		}
		group = g
		s.doc.InvalidateApproval(page)
		return nil
	})
	return group, err
}

// ExtendGroupToPage adds a question mask on another page to a group.
func (s *Session) ExtendGroupToPage(groupID string, page int, questionID string) error {
	return s.mutate(func() error {
		if err := s.doc.RequireStage(page, state.StageAssociation); err != nil {
			return err
		}
		if err := s.doc.ExtendGroupToPage(groupID, page, questionID); err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
}

// Disassociate detaches an image mask from its group.
func (s *Session) Disassociate(page int, imageID string) error {
	return s.mutate(func() error {
		if err := s.doc.RequireStage(page, state.StageAssociation); err != nil {
			return err
		}
		if err := s.doc.Disassociate(page, imageID); err != nil {
			return err
		}
		s.doc.InvalidateApproval(page)
		return nil
	})
}

// ApplyLabel records a human-confirmed option label on an image mask.
func (s *Session) ApplyLabel(page int, maskID, label string) error {
	return s.mutate(func() error {
		if err := s.doc.RequireStage(page, state.StageOptionLabels); err != nil {
			return err
		}
		m, err := s.doc.Mask(page, maskID)
		if err != nil {
			return err
		}
		if m.Type != state.MaskImage {
			return fmt.Errorf("%w: mask %s is not an image mask", state.ErrInvalidOperation, maskID)
		}
		if !state.ValidOptionLabel(label) {
			return fmt.Errorf("%w: option label must be one of A..E, got %q", state.ErrInvalidOperation, label)
		}
		m.OptionLabel = label
		m.LabelChecked = true
		s.doc.Touch()
		s.doc.InvalidateApproval(page)
		return nil
	})
}

// SetLabelGuess records an OCR label guess without marking it confirmed.
// Masks already confirmed are left alone unless overwrite is set.
func (s *Session) SetLabelGuess(page int, maskID, label string, overwrite bool) error {
	return s.mutate(func() error {
		if err := s.doc.RequireStage(page, state.StageOptionLabels); err != nil {
			return err
		}
		m, err := s.doc.Mask(page, maskID)
		if err != nil {
			return err
		}
		if m.Type != state.MaskImage {
			return fmt.Errorf("%w: mask %s is not an image mask", state.ErrInvalidOperation, maskID)
		}
		if m.LabelChecked && !overwrite {
			return nil
		}
		if !state.ValidOptionLabel(label) {
			return nil
		}
		m.OptionLabel = label
		m.LabelChecked = false
		s.doc.Touch()
		return nil
	})
}

// MarkOCRDone records that the automatic labeling pass ran for a page.
func (s *Session) MarkOCRDone(page int) error {
	return s.mutate(func() error {
		p, err := s.doc.Page(page)
		if err != nil {
			return err
		}
		p.Workflow.OCRDone = true
		s.doc.Touch()
		return nil
	})
}

// Advance moves a page one stage forward. runOCR is set when the page
// entered the option-labels stage for the first time, signalling the
// caller to run the automatic labeling pass in the background.
func (s *Session) Advance(page int) (stage state.Stage, runOCR bool, err error) {
	err = s.mutate(func() error {
		next, err := s.doc.AdvanceStage(page)
		if err != nil {
			return err
		}
		stage = next
		p, err := s.doc.Page(page)
		if err != nil {
			return err
		}
		if next == state.StageOptionLabels && !p.Workflow.OCRDone {
			runOCR = true
		}
		if next == state.StageValidation {
			if pruned := s.doc.PruneOrphanGroups(); len(pruned) > 0 {
				s.log.Info("pruned orphaned question groups", "page", page, "groups", pruned)
			}
		}
		return nil
	})
	return stage, runOCR, err
}

// Regress moves a page back to an earlier stage, clearing its approval.
func (s *Session) Regress(page int, to state.Stage) error {
	return s.mutate(func() error {
		return s.doc.RegressStage(page, to)
	})
}

// Validate prunes orphaned groups, persists if anything was pruned, and
// returns the findings for the whole document.
func (s *Session) Validate() ([]validate.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pruned := s.doc.PruneOrphanGroups(); len(pruned) > 0 {
		s.log.Info("pruned orphaned question groups", "groups", pruned)
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return validate.Check(s.doc), nil
}

// Approve marks a page approved. The page must be at the approval stage
// with no blocking findings, unless override is set; an override is
// recorded in the persisted state.
func (s *Session) Approve(page int, override bool) error {
	return s.mutate(func() error {
		p, err := s.doc.Page(page)
		if err != nil {
			return err
		}
		if p.Workflow.Stage != state.StageApproval {
			return fmt.Errorf("%w: page %d is at %s, approval requires %s",
				state.ErrStageViolation, page, p.Workflow.Stage, state.StageApproval)
		}
		s.doc.PruneOrphanGroups()
		findings := validate.ForPage(validate.Check(s.doc), page)
		if validate.Blocking(findings) && !override {
			return fmt.Errorf("%w: page %d has %d finding(s)", ErrBlockedByFindings, page, len(findings))
		}
		p.Approved = true
		p.ApprovalOverride = override && validate.Blocking(findings)
		s.doc.Touch()
		return nil
	})
}

// ApproveAll approves every unapproved page. It checks all pages before
// touching any: if one page is not at the approval stage or has blocking
// findings (absent override), no page is approved.
func (s *Session) ApproveAll(override bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.PruneOrphanGroups()
	findings := validate.Check(s.doc)
	overridden := make(map[int]bool)
	for n := 1; n <= s.doc.PageCount; n++ {
		p, err := s.doc.Page(n)
		if err != nil {
			return err
		}
		if p.Approved {
			continue
		}
		if p.Workflow.Stage != state.StageApproval {
			return fmt.Errorf("%w: page %d is at %s, approval requires %s",
				state.ErrStageViolation, n, p.Workflow.Stage, state.StageApproval)
		}
		pageFindings := validate.ForPage(findings, n)
		if validate.Blocking(pageFindings) {
			if !override {
				return fmt.Errorf("%w: page %d has %d finding(s)", ErrBlockedByFindings, n, len(pageFindings))
			}
			overridden[n] = true
		}
	}
	for n := 1; n <= s.doc.PageCount; n++ {
		p, _ := s.doc.Page(n)
		if p.Approved {
			continue
		}
		p.Approved = true
		p.ApprovalOverride = overridden[n]
	}
	s.doc.Touch()
	return s.save()
}

// Flush persists the current in-memory state as is. Used after Open to
// rewrite a freshly migrated sidecar in the current format.
func (s *Session) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// SetMetadata records a free-form key/value on the document.
func (s *Session) SetMetadata(key, value string) error {
	return s.mutate(func() error {
		s.doc.Metadata[key] = value
		s.doc.Touch()
		return nil
	})
}
