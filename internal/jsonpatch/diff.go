// Package jsonpatch computes RFC 6902 patches between two JSON documents,
// so a dashboard client can apply only what changed.
package jsonpatch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpReplace = "replace"
)

type Op struct {
	Op    string
	Path  string
	Value any
}

// MarshalJSON omits value for remove but keeps an explicit null for add
// and replace.
func (o Op) MarshalJSON() ([]byte, error) {
	if o.Op == OpRemove {
		return json.Marshal(struct {
			Op   string `json:"op"`
			Path string `json:"path"`
		}{o.Op, o.Path})
	}
	return json.Marshal(struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		Value any    `json:"value"`
	}{o.Op, o.Path, o.Value})
}

// Between encodes a and b to JSON and returns the patch turning a into b.
// Operations are emitted in a deterministic order.
func Between(a, b any) ([]Op, error) {
	da, err := normalize(a)
	if err != nil {
		return nil, fmt.Errorf("encode source document: %w", err)
	}
	db, err := normalize(b)
	if err != nil {
		return nil, fmt.Errorf("encode target document: %w", err)
	}
	ops := Diff(da, db, "")
	if ops == nil {
		ops = []Op{}
	}
	return ops, nil
}

func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Diff computes the patch that transforms a into b. Both must be the
// result of decoding JSON into an any. path is "" for the root document.
func Diff(a, b any, path string) []Op {
	if a == nil && b == nil {
		return nil
	}
	if a == nil || b == nil {
		return []Op{{Op: OpReplace, Path: path, Value: b}}
	}

	aMap, aIsMap := a.(map[string]any)
	bMap, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		return diffObjects(aMap, bMap, path)
	}

	aArr, aIsArr := a.([]any)
	bArr, bIsArr := b.([]any)
	if aIsArr && bIsArr {
		return diffArrays(aArr, bArr, path)
	}

	if aIsMap || bIsMap || aIsArr || bIsArr || a != b {
		return []Op{{Op: OpReplace, Path: path, Value: b}}
	}
	return nil
}

func diffObjects(a, b map[string]any, path string) []Op {
	var ops []Op

	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; !ok {
			ops = append(ops, Op{Op: OpRemove, Path: path + "/" + escapeKey(k)})
		}
	}

	for _, k := range sortedKeys(b) {
		childPath := path + "/" + escapeKey(k)
		av, inA := a[k]
		if !inA {
			ops = append(ops, Op{Op: OpAdd, Path: childPath, Value: b[k]})
			continue
		}
		ops = append(ops, Diff(av, b[k], childPath)...)
	}
	return ops
}

func diffArrays(a, b []any, path string) []Op {
	var ops []Op

	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		ops = append(ops, Diff(a[i], b[i], path+"/"+strconv.Itoa(i))...)
	}

	// removed from the tail first so earlier indices stay valid
	for i := len(a) - 1; i >= minLen; i-- {
		ops = append(ops, Op{Op: OpRemove, Path: path + "/" + strconv.Itoa(i)})
	}
	for i := minLen; i < len(b); i++ {
		ops = append(ops, Op{Op: OpAdd, Path: path + "/" + strconv.Itoa(i), Value: b[i]})
	}
	return ops
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// escapeKey escapes a JSON Pointer token per RFC 6901.
func escapeKey(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}
