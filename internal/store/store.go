// Package store persists document state to a sidecar file next to the
// source document. Saves are atomic (temp file plus rename) so the
// sidecar is never observed half-written; loads migrate legacy schemas
// in place before decoding.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pagemark/pagemark/internal/state"
)

//go:embed schemas/sidecar.schema.json
var sidecarSchemaRaw []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func sidecarSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("sidecar.schema.json", bytes.NewReader(sidecarSchemaRaw)); err != nil {
			schemaErr = fmt.Errorf("failed to load sidecar schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("sidecar.schema.json")
	})
	return schema, schemaErr
}

// SidecarPath returns the sidecar file path for a source document.
func SidecarPath(docPath string) string {
	return docPath + ".json"
}

// fileDoc is the wire shape of a sidecar file. Pages are keyed by the
// page number as a string; group ids are the map keys.
type fileDoc struct {
	PageCount      int                             `json:"page_count"`
	Pages          map[string]*state.Page          `json:"pages"`
	QuestionGroups map[string]*state.QuestionGroup `json:"question_groups"`
	Metadata       map[string]string               `json:"metadata"`
	CreatedAt      time.Time                       `json:"created_at"`
	UpdatedAt      time.Time                       `json:"updated_at"`
}

// Load reads the sidecar at path. A missing file yields a fresh state
// seeded with pageCount pages. An unparseable file is ErrCorruptState;
// a legacy schema that cannot be converted is ErrMigrationFailure.
func Load(path string, pageCount int) (*state.DocumentState, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return state.NewDocumentState(pageCount), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sidecar %s: %w", path, err)
	}

	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", state.ErrCorruptState, path, err)
	}

	if err := Migrate(root, pageCount); err != nil {
		return nil, err
	}

	s, err := sidecarSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", state.ErrCorruptState, path, err)
	}

	migrated, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("re-encoding migrated sidecar: %w", err)
	}
	var fd fileDoc
	if err := json.Unmarshal(migrated, &fd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", state.ErrCorruptState, path, err)
	}
	return fromFileDoc(&fd, path)
}

// Save serializes the document and atomically replaces the sidecar at
// path. The updated_at timestamp is refreshed immediately before
// serialization.
func Save(path string, doc *state.DocumentState) error {
	doc.Touch()

	data, err := json.MarshalIndent(toFileDoc(doc), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sidecar: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp sidecar in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp sidecar: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp sidecar: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting sidecar mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing sidecar %s: %w", path, err)
	}
	return nil
}

func toFileDoc(doc *state.DocumentState) *fileDoc {
	fd := &fileDoc{
		PageCount:      doc.PageCount,
		Pages:          make(map[string]*state.Page, len(doc.Pages)),
		QuestionGroups: doc.QuestionGroups,
		Metadata:       doc.Metadata,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	for n, p := range doc.Pages {
		fd.Pages[strconv.Itoa(n)] = p
	}
	return fd
}

func fromFileDoc(fd *fileDoc, path string) (*state.DocumentState, error) {
	doc := &state.DocumentState{
		PageCount:      fd.PageCount,
		Pages:          make(map[int]*state.Page, len(fd.Pages)),
		QuestionGroups: fd.QuestionGroups,
		Metadata:       fd.Metadata,
		CreatedAt:      fd.CreatedAt,
		UpdatedAt:      fd.UpdatedAt,
	}
	if doc.QuestionGroups == nil {
		doc.QuestionGroups = make(map[string]*state.QuestionGroup)
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	for key, p := range fd.Pages {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %s: page key %q", state.ErrCorruptState, path, key)
		}
		p.Number = n
		if p.Masks == nil {
			p.Masks = []*state.Mask{}
		}
		doc.Pages[n] = p
	}
	for id, g := range doc.QuestionGroups {
		g.ID = id
	}
	// Pages never touched by the user exist implicitly.
	for n := 1; n <= doc.PageCount; n++ {
		if _, ok := doc.Pages[n]; !ok {
			doc.Pages[n] = &state.Page{
				Number:   n,
				Workflow: state.Workflow{Stage: state.StageImageRegions},
				Masks:    []*state.Mask{},
			}
		}
	}
	return doc, nil
}
