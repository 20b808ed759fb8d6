package state

import (
	"errors"
	"testing"

	"github.com/pagemark/pagemark/internal/geom"
)

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageImageRegions, "image_regions"},
		{StageQuestionRegions, "question_regions"},
		{StageAssociation, "association"},
		{StageOptionLabels, "option_labels"},
		{StageValidation, "validation"},
		{StageApproval, "approval"},
		{Stage(9), "stage(9)"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", int(tt.stage), got, tt.want)
		}
	}
}

func TestRequireStage(t *testing.T) {
	d := newDoc(t, 1)

	if err := d.RequireStage(1, StageImageRegions); err != nil {
		t.Errorf("fresh page should allow stage 1 work: %v", err)
	}
	if err := d.RequireStage(1, StageAssociation); !errors.Is(err, ErrStageViolation) {
		t.Errorf("error = %v, want ErrStageViolation", err)
	}
	if err := d.RequireStage(2, StageImageRegions); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("error = %v, want ErrUnknownPage", err)
	}
}

func TestAdvanceStage(t *testing.T) {
	d := newDoc(t, 1)

	for want := StageQuestionRegions; want <= StageApproval; want++ {
		got, err := d.AdvanceStage(1)
		if err != nil {
			t.Fatalf("AdvanceStage to %s: %v", want, err)
		}
		if got != want {
			t.Fatalf("AdvanceStage = %s, want %s", got, want)
		}
	}

	if _, err := d.AdvanceStage(1); !errors.Is(err, ErrStageViolation) {
		t.Errorf("advancing past %s: error = %v, want ErrStageViolation", StageApproval, err)
	}
}

func TestRegressStage(t *testing.T) {
	d := newDoc(t, 1)
	p := d.Pages[1]
	p.Workflow.Stage = StageApproval
	p.Approved = true
	p.ApprovalOverride = true

	if err := d.RegressStage(1, StageQuestionRegions); err != nil {
		t.Fatalf("RegressStage: %v", err)
	}
	if p.Workflow.Stage != StageQuestionRegions {
		t.Errorf("stage = %s, want %s", p.Workflow.Stage, StageQuestionRegions)
	}
	if p.Approved || p.ApprovalOverride {
		t.Error("regression must clear approval")
	}

	if err := d.RegressStage(1, StageApproval); !errors.Is(err, ErrStageViolation) {
		t.Errorf("forward regression: error = %v, want ErrStageViolation", err)
	}
	if err := d.RegressStage(1, Stage(0)); !errors.Is(err, ErrStageViolation) {
		t.Errorf("invalid target: error = %v, want ErrStageViolation", err)
	}
}

func TestInvalidateApproval(t *testing.T) {
	d := newDoc(t, 1)
	p := d.Pages[1]
	p.Approved = true
	p.ApprovalOverride = true

	d.InvalidateApproval(1)
	if p.Approved || p.ApprovalOverride {
		t.Error("approval should be cleared")
	}
}

func TestReplaceQuestionMasks(t *testing.T) {
	d := newDoc(t, 1)
	q := mustMask(t, d, 1, MaskQuestion, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})
	img := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 20, Y0: 0, X1: 30, Y1: 10})
	if _, err := d.Associate(1, []string{img.ID}, q.ID); err != nil {
		t.Fatalf("Associate: %v", err)
	}

	cands := [][]geom.Point{
		geom.BBox{X0: 0, Y0: 0, X1: 5, Y1: 5}.Points(),
		geom.BBox{X0: 6, Y0: 0, X1: 12, Y1: 5}.Points(),
	}
	if err := d.ReplaceQuestionMasks(1, cands); err != nil {
		t.Fatalf("ReplaceQuestionMasks: %v", err)
	}

	p := d.Pages[1]
	if got := len(p.MasksOfType(MaskQuestion)); got != 2 {
		t.Errorf("question masks = %d, want 2", got)
	}
	if p.Mask(img.ID) == nil {
		t.Fatal("image mask must survive question recompute")
	}
	if len(d.QuestionGroups) != 0 {
		t.Error("group of a discarded question mask should be deleted")
	}
	if img.QuestionGroupID != "" {
		t.Error("image mask should be detached from the deleted group")
	}
}

func TestReplaceImageMasks_BadCandidateLeavesPage(t *testing.T) {
	d := newDoc(t, 1)
	m := mustMask(t, d, 1, MaskImage, geom.BBox{X0: 0, Y0: 0, X1: 10, Y1: 10})

	cands := [][]geom.Point{
		geom.BBox{X0: 0, Y0: 0, X1: 5, Y1: 5}.Points(),
		{{X: 0, Y: 0}, {X: 1, Y: 1}},
	}
	if err := d.ReplaceImageMasks(1, cands); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("error = %v, want ErrInvalidOperation", err)
	}
	if d.Pages[1].Mask(m.ID) == nil || len(d.Pages[1].Masks) != 1 {
		t.Error("failed replace must leave existing masks untouched")
	}
}
