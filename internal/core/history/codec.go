package history

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-fleet-replay/internal/core/model"
)

// DecodeSnapshot parses an entity file
func DecodeSnapshot(data []byte) (model.Snapshot, error) {
	var snap model.Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return nil, model.NewValidationError("entities", "%v", err)
	}
	if snap == nil {
		return nil, model.NewValidationError("entities", "not an object of entity lists")
	}
	return snap, nil
}

// DecodeEntries parses a change file
func DecodeEntries(source string, data []byte) ([]model.ChangeEntry, error) {
	var entries []model.ChangeEntry
	if err := sonic.Unmarshal(data, &entries); err != nil {
		return nil, model.NewValidationError(source, "%v", err)
	}
	return entries, nil
}

// ValidatePage checks the structural invariants the playback relies on:
// a non-empty page, entries in non-decreasing time order inside the page's
// declared range, named events and positive entity ids.
func ValidatePage(page *model.Page) error {
	source := fmt.Sprintf("page %d", page.Index)
	if len(page.Entries) == 0 {
		return model.NewValidationError(source, "no change entries")
	}
	for i, entry := range page.Entries {
		if i > 0 && entry.Time < page.Entries[i-1].Time {
			return model.NewValidationError(source, "entry %d at %v precedes entry %d at %v",
				i, entry.Time, i-1, page.Entries[i-1].Time)
		}
		if page.End > page.Start && (entry.Time < page.Start || entry.Time > page.End) {
			return model.NewValidationError(source, "entry %d at %v outside [%v, %v]",
				i, entry.Time, page.Start, page.End)
		}
		for j, event := range entry.Events {
			if event.Name == "" {
				return model.NewValidationError(source, "entry %d event %d has no name", i, j)
			}
			for typ, deltas := range event.Changes {
				for _, d := range deltas {
					if d.ID < 0 {
						return model.NewValidationError(source, "entry %d event %q: negative id in %s", i, event.Name, typ)
					}
				}
			}
		}
	}
	return nil
}

// NewPage builds and validates a page from decoded entries. When start and
// end are both zero they are taken from the entries.
func NewPage(index int, start, end float64, entries []model.ChangeEntry) (*model.Page, error) {
	page := &model.Page{Index: index, Start: start, End: end, Entries: entries}
	if start == 0 && end == 0 && len(entries) > 0 {
		page.Start = entries[0].Time
		page.End = entries[len(entries)-1].Time
	}
	if err := ValidatePage(page); err != nil {
		return nil, err
	}
	return page, nil
}
