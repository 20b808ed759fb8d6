package state

import "errors"

// Error kinds surfaced by the annotation state engine. Callers match on
// these with errors.Is; all mutation-rejecting errors leave the document
// exactly as it was before the call.
var (
	// ErrInvalidOperation reports malformed geometry or operation input.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrStageViolation reports a mutation attempted outside its permitted
	// workflow stage.
	ErrStageViolation = errors.New("stage violation")

	// ErrDuplicatePage reports a question group that would gain a second
	// member on the same page.
	ErrDuplicatePage = errors.New("duplicate page in question group")

	// ErrCorruptState reports a sidecar file that exists but cannot be
	// parsed as structured data.
	ErrCorruptState = errors.New("corrupt state file")

	// ErrMigrationFailure reports a legacy sidecar schema that cannot be
	// converted to the current format.
	ErrMigrationFailure = errors.New("state migration failed")

	// ErrNotApproved reports an export attempted while at least one page
	// is not approved.
	ErrNotApproved = errors.New("not all pages approved")

	// ErrUnknownPage reports a page number outside 1..page_count.
	ErrUnknownPage = errors.New("unknown page")

	// ErrUnknownMask reports a mask id with no mask on the given page.
	ErrUnknownMask = errors.New("unknown mask")
)
