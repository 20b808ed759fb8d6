package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pagemark/pagemark/internal/geom"
)

// MaskType discriminates the two mask variants.
type MaskType string

const (
	// MaskImage is an answer-option image region.
	MaskImage MaskType = "image"
	// MaskQuestion is a question text region.
	MaskQuestion MaskType = "question"
)

// Valid reports whether t is a known mask type.
func (t MaskType) Valid() bool {
	return t == MaskImage || t == MaskQuestion
}

// Mask is a polygonal region annotated on one page. Points are in
// page-raster pixel space and form a simple, implicitly closed polygon;
// BBox is derived from Points and never mutated independently.
type Mask struct {
	ID              string       `json:"id"`
	Type            MaskType     `json:"type"`
	Points          []geom.Point `json:"points"`
	BBox            geom.BBox    `json:"bbox"`
	OptionLabel     string       `json:"option_label,omitempty"`
	LabelChecked    bool         `json:"label_checked"`
	QuestionGroupID string       `json:"question_group_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewMask creates a mask with a fresh id after validating the polygon.
func NewMask(t MaskType, pts []geom.Point) (*Mask, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown mask type %q", ErrInvalidOperation, t)
	}
	if !geom.IsSimplePolygon(pts) {
		return nil, fmt.Errorf("%w: points do not form a simple polygon with positive area", ErrInvalidOperation)
	}
	points := make([]geom.Point, len(pts))
	copy(points, pts)
	return &Mask{
		ID:        uuid.NewString(),
		Type:      t,
		Points:    points,
		BBox:      geom.BBoxFromPoints(points),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}, nil
}

// SetPoints replaces the polygon and recomputes the bounding box.
// The mask is unchanged when the new polygon is not simple.
func (m *Mask) SetPoints(pts []geom.Point) error {
	if !geom.IsSimplePolygon(pts) {
		return fmt.Errorf("%w: points do not form a simple polygon with positive area", ErrInvalidOperation)
	}
	points := make([]geom.Point, len(pts))
	copy(points, pts)
	m.Points = points
	m.BBox = geom.BBoxFromPoints(points)
	return nil
}

// ClearLabel resets the option label to the unlabeled, unchecked state.
func (m *Mask) ClearLabel() {
	m.OptionLabel = ""
	m.LabelChecked = false
}

// clone returns a deep copy of the mask.
func (m *Mask) clone() *Mask {
	c := *m
	c.Points = make([]geom.Point, len(m.Points))
	copy(c.Points, m.Points)
	return &c
}

// ValidOptionLabel reports whether s is a single character in A..E.
func ValidOptionLabel(s string) bool {
	if len(s) != 1 {
		return false
	}
	return s[0] >= 'A' && s[0] <= 'E'
}
