package generic

import (
	"context"
	"encoding/json"
	"fmt"
)

// =============================================================================
// TYPED SECTION ACCESS
// =============================================================================

// LoadSection decodes a section into T. An absent section yields T's zero
// value and version 0.
func LoadSection[T any](ctx context.Context, s SectionStore, name SectionName) (T, int64, error) {
	var v T
	sec, err := s.GetSection(ctx, name)
	if err != nil {
		return v, 0, fmt.Errorf("load %s: %w", name, err)
	}
	if len(sec.Value) == 0 {
		return v, sec.Version, nil
	}
	if err := json.Unmarshal(sec.Value, &v); err != nil {
		return v, sec.Version, fmt.Errorf("decode %s: %w", name, err)
	}
	return v, sec.Version, nil
}

// LoadSectionOr is LoadSection with a fallback for absent sections.
func LoadSectionOr[T any](ctx context.Context, s SectionStore, name SectionName, def T) (T, error) {
	v, version, err := LoadSection[T](ctx, s, name)
	if err != nil {
		return v, err
	}
	if version == 0 {
		return def, nil
	}
	return v, nil
}

// SaveSection encodes v and replaces the section.
func SaveSection[T any](ctx context.Context, s SectionStore, name SectionName, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.PutSection(ctx, name, raw); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// SaveSectionIfVersion encodes v and writes it only if the section is still
// at version.
func SaveSectionIfVersion[T any](ctx context.Context, s SectionStore, name SectionName, v T, version int64) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.PutSectionIfVersion(ctx, name, raw, version); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// AppendItem encodes item and appends it to an array section.
func AppendItem[T any](ctx context.Context, s SectionStore, name SectionName, item T) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s item: %w", name, err)
	}
	if err := s.AppendToSection(ctx, name, raw); err != nil {
		return fmt.Errorf("append %s: %w", name, err)
	}
	return nil
}

// UpdateSection runs a read-modify-write over one section guarded by the
// version read. fn receives the current value (def when absent) and returns
// the value to persist.
func UpdateSection[T any](ctx context.Context, s SectionStore, name SectionName, def T, fn func(T) (T, error)) (T, error) {
	cur, version, err := LoadSection[T](ctx, s, name)
	if err != nil {
		return cur, err
	}
	if version == 0 {
		cur = def
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	if err := SaveSectionIfVersion(ctx, s, name, next, version); err != nil {
		return cur, err
	}
	return next, nil
}

// AppendRaw is the array-append step shared by the store implementations:
// it returns current ++ [item], treating empty current as [].
func AppendRaw(current, item json.RawMessage) (json.RawMessage, error) {
	var arr []json.RawMessage
	if len(current) > 0 && string(current) != "null" {
		if err := json.Unmarshal(current, &arr); err != nil {
			return nil, ErrNotArraySection
		}
	}
	arr = append(arr, item)
	return json.Marshal(arr)
}
