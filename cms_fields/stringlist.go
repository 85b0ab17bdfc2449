package cms_fields

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// StringList is stored as a JSON array in a TEXT column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cms_fields: cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// NormalizeTags trims, lower-cases and de-duplicates tags keeping their first-seen order.
func NormalizeTags(in []string) StringList {
	lowered := make([]string, len(in))
	for i, t := range in {
		lowered[i] = strings.ToLower(t)
	}
	return CleanList(lowered)
}

// CleanList trims and de-duplicates entries, dropping empty ones.
func CleanList(in []string) StringList {
	seen := make(map[string]struct{}, len(in))
	out := make(StringList, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Contains reports whether the list holds v.
func (l StringList) Contains(v string) bool {
	for _, s := range l {
		if s == v {
			return true
		}
	}
	return false
}
