package feed

import (
	"encoding/json"
	"fmt"
	"strings"
)

// feedResponse is the wire shape of the read endpoint:
// {"channel": {...metadata...}, "feeds": [{...entries...}]}.
type feedResponse struct {
	Channel map[string]any `json:"channel"`
	Feeds   []feedEntry    `json:"feeds"`
}

// feedEntry is one record of the feeds array. Field values arrive as JSON
// strings (or null when the sensor reported nothing for that field), so the
// entry keeps them raw; numeric parsing happens in the fetcher where
// failures can be attributed to a channel and entry.
type feedEntry struct {
	CreatedAt string
	EntryID   int64
	Fields    map[string]*string
}

// UnmarshalJSON splits the fixed keys (created_at, entry_id) from the
// dynamic field columns.
func (e *feedEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Fields = make(map[string]*string)
	for key, val := range raw {
		switch {
		case key == "created_at":
			if err := json.Unmarshal(val, &e.CreatedAt); err != nil {
				return fmt.Errorf("created_at: %w", err)
			}
		case key == "entry_id":
			if err := json.Unmarshal(val, &e.EntryID); err != nil {
				return fmt.Errorf("entry_id: %w", err)
			}
		case strings.Contains(key, "field"):
			var s *string
			if err := json.Unmarshal(val, &s); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			e.Fields[key] = s
		}
	}
	return nil
}
