package store

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pagemark/pagemark/internal/state"
)

// Migrate converts a legacy sidecar document to the current schema, in
// place. It is idempotent: a current-schema document passes through
// unchanged. The migrations, in order:
//
//  1. pages stored as a list become a map keyed by page number
//  2. missing page_count, workflow, masks, and mask fields are backfilled
//  3. the legacy scalar question_id per mask becomes question_groups
//     membership, with the legacy value as the group id
func Migrate(root map[string]any, pageCount int) error {
	if err := migratePagesList(root); err != nil {
		return err
	}

	pages, _ := root["pages"].(map[string]any)
	if pages == nil {
		pages = map[string]any{}
		root["pages"] = pages
	}

	if _, ok := root["page_count"]; !ok {
		n := pageCount
		if n < len(pages) {
			n = len(pages)
		}
		root["page_count"] = n
	}

	for key, v := range pages {
		page, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: page %s is not an object", state.ErrMigrationFailure, key)
		}
		backfillPage(page)
	}

	if err := migrateLegacyQuestionIDs(root, pages); err != nil {
		return err
	}

	if _, ok := root["question_groups"]; !ok {
		root["question_groups"] = map[string]any{}
	}
	if _, ok := root["metadata"]; !ok {
		root["metadata"] = map[string]any{}
	}
	now := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	if _, ok := root["created_at"]; !ok {
		root["created_at"] = now
	}
	if _, ok := root["updated_at"]; !ok {
		root["updated_at"] = now
	}
	return nil
}

// migratePagesList converts the oldest schema, a positional list of
// pages, into the page-number-keyed map.
func migratePagesList(root map[string]any) error {
	list, ok := root["pages"].([]any)
	if !ok {
		return nil
	}
	pages := make(map[string]any, len(list))
	for i, v := range list {
		page, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: pages[%d] is not an object", state.ErrMigrationFailure, i)
		}
		key := strconv.Itoa(i + 1)
		if n, ok := numberField(page, "page_number"); ok {
			key = strconv.Itoa(n)
			delete(page, "page_number")
		}
		if _, dup := pages[key]; dup {
			return fmt.Errorf("%w: two pages numbered %s", state.ErrMigrationFailure, key)
		}
		pages[key] = page
	}
	root["pages"] = pages
	return nil
}

func backfillPage(page map[string]any) {
	if _, ok := page["workflow"].(map[string]any); !ok {
		page["workflow"] = map[string]any{"stage": 1}
	} else if _, ok := page["workflow"].(map[string]any)["stage"]; !ok {
		page["workflow"].(map[string]any)["stage"] = 1
	}
	if _, ok := page["approved"]; !ok {
		page["approved"] = false
	}

	masks, _ := page["masks"].([]any)
	if masks == nil {
		page["masks"] = []any{}
		return
	}
	for _, mv := range masks {
		m, ok := mv.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := m["type"]; !ok {
			m["type"] = string(state.MaskImage)
		}
		if _, ok := m["label_checked"]; !ok {
			m["label_checked"] = false
		}
		if _, ok := m["bbox"]; !ok {
			if box, ok := bboxFromRawPoints(m["points"]); ok {
				m["bbox"] = box
			}
		}
	}
}

// migrateLegacyQuestionIDs converts the scalar question_id field that
// masks carried before question groups existed. Every distinct legacy
// value becomes one group: its question masks are the members, ordered
// by page, and its image masks point at it via question_group_id.
func migrateLegacyQuestionIDs(root, pages map[string]any) error {
	groups, _ := root["question_groups"].(map[string]any)

	type member struct {
		page int
		mask string
	}
	members := make(map[string][]member)
	images := make(map[string][]map[string]any)

	for key, pv := range pages {
		page, _ := pv.(map[string]any)
		if page == nil {
			continue
		}
		pageNum, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("%w: page key %q is not a number", state.ErrMigrationFailure, key)
		}
		masks, _ := page["masks"].([]any)
		for _, mv := range masks {
			m, ok := mv.(map[string]any)
			if !ok {
				continue
			}
			raw, ok := m["question_id"]
			if !ok {
				continue
			}
			delete(m, "question_id")
			gid := legacyGroupID(raw)
			if gid == "" {
				continue
			}
			if m["type"] == string(state.MaskQuestion) {
				id, _ := m["id"].(string)
				if id == "" {
					return fmt.Errorf("%w: question mask with question_id %s has no id", state.ErrMigrationFailure, gid)
				}
				members[gid] = append(members[gid], member{page: pageNum, mask: id})
			} else {
				images[gid] = append(images[gid], m)
			}
		}
	}

	if len(members) == 0 {
		return nil
	}
	if groups == nil {
		groups = map[string]any{}
		root["question_groups"] = groups
	}
	for gid, ms := range members {
		if _, exists := groups[gid]; exists {
			return fmt.Errorf("%w: legacy question_id %s collides with an existing group", state.ErrMigrationFailure, gid)
		}
		sort.Slice(ms, func(i, j int) bool { return ms[i].page < ms[j].page })
		entries := make([]any, 0, len(ms))
		for i, mb := range ms {
			if i > 0 && ms[i-1].page == mb.page {
				return fmt.Errorf("%w: legacy question_id %s has two masks on page %d", state.ErrMigrationFailure, gid, mb.page)
			}
			entries = append(entries, []any{mb.page, mb.mask})
		}
		groups[gid] = map[string]any{"page_masks": entries}
		// Only now that the group exists do image references resolve; an
		// id shared by image masks alone creates no group and the masks
		// stay detached.
		for _, m := range images[gid] {
			m["question_group_id"] = gid
		}
		// Question masks that referenced the legacy id now resolve too.
		for _, pv := range pages {
			page, _ := pv.(map[string]any)
			if page == nil {
				continue
			}
			masks, _ := page["masks"].([]any)
			for _, mv := range masks {
				m, ok := mv.(map[string]any)
				if ok && m["type"] == string(state.MaskQuestion) {
					for _, mb := range ms {
						if m["id"] == mb.mask {
							m["question_group_id"] = gid
						}
					}
				}
			}
		}
	}
	return nil
}

func legacyGroupID(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func numberField(m map[string]any, key string) (int, bool) {
	f, ok := m[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func bboxFromRawPoints(raw any) ([]any, bool) {
	pts, ok := raw.([]any)
	if !ok || len(pts) == 0 {
		return nil, false
	}
	var x0, y0, x1, y1 float64
	for i, pv := range pts {
		pair, ok := pv.([]any)
		if !ok || len(pair) != 2 {
			return nil, false
		}
		x, xok := pair[0].(float64)
		y, yok := pair[1].(float64)
		if !xok || !yok {
			return nil, false
		}
		if i == 0 {
			x0, y0, x1, y1 = x, y, x, y
			continue
		}
		if x < x0 {
			x0 = x
		}
		if y < y0 {
			y0 = y
		}
		if x > x1 {
			x1 = x
		}
		if y > y1 {
			y1 = y
		}
	}
	return []any{x0, y0, x1, y1}, true
}
