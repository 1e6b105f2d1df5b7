package filters

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/samber/lo"
)

// LoadPinned reads pinned filters from path. A missing file yields none.
func LoadPinned(path string) ([]core.Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("filters: reading pinned filters: %w", err)
	}
	var out []core.Filter
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("filters: parsing pinned filters %s: %w", path, err)
	}
	RestoreRangeTimes(out)
	for i := range out {
		out[i].State.Store = core.GlobalState
	}
	return out, nil
}

// SavePinned writes the pinned subset of filters to path.
func SavePinned(path string, filters []core.Filter) error {
	pinned := lo.Filter(filters, func(f core.Filter, _ int) bool { return f.Pinned() })
	if pinned == nil {
		pinned = []core.Filter{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("filters: creating dir: %w", err)
	}
	data, err := json.MarshalIndent(pinned, "", "  ")
	if err != nil {
		return fmt.Errorf("filters: marshaling pinned filters: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("filters: writing pinned filters: %w", err)
	}
	return nil
}

// RestoreRangeTimes turns RFC 3339 range bounds back into times after a
// JSON or YAML round trip so date filters keep comparing as dates.
func RestoreRangeTimes(list []core.Filter) {
	for i := range list {
		r := list[i].Clause.Range
		if r == nil {
			continue
		}
		for _, bound := range []*any{&r.GTE, &r.LT} {
			s, ok := (*bound).(string)
			if !ok {
				continue
			}
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				*bound = t
			}
		}
	}
}
