// Package regionsjson serializes region metadata to a JSON side-channel
// document and exposes path-based queries and incremental patches over it,
// so downstream tooling can pull a region's dependency list by property
// path without round-tripping through Go structs.
package regionsjson

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"fictc/internal/compiler"
	"fictc/internal/regions"
)

// Marshal builds the region-metadata document incrementally: one entry per
// region under "regions", in region-id order, carrying exactly the §6
// contract fields (id, dependencies, declarations, hasControlFlow, memoize,
// parentId).
func Marshal(regs []*regions.Region) (string, error) {
	doc := `{"regions":[]}`
	for i, r := range regs {
		base := "regions." + itoa(i)
		var err error
		if doc, err = sjson.Set(doc, base+".id", r.ID); err != nil {
			return "", err
		}
		deps := make([]string, len(r.Dependencies))
		for j, d := range r.Dependencies {
			deps[j] = d.String()
		}
		if doc, err = sjson.Set(doc, base+".dependencies", deps); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, base+".declarations", r.Declarations); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, base+".hasControlFlow", r.HasControlFlow); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, base+".memoize", r.Memoize); err != nil {
			return "", err
		}
		if r.ParentID != nil {
			if doc, err = sjson.Set(doc, base+".parentId", *r.ParentID); err != nil {
				return "", err
			}
		}
	}
	return doc, nil
}

// Query evaluates a gjson path over a marshaled document, e.g.
// `regions.#(memoize==true)#.dependencies`.
func Query(doc, path string) gjson.Result {
	return gjson.Get(doc, path)
}

// Patch sets one value in the document without re-marshaling it.
func Patch(doc, path string, value any) (string, error) {
	return sjson.Set(doc, path, value)
}

// AttachDiagnostics appends onWarn diagnostics under "diagnostics" so the
// exported document carries the build's side channel alongside the region
// metadata.
func AttachDiagnostics(doc string, diags []compiler.Diagnostic) (string, error) {
	for _, d := range diags {
		entry := map[string]any{
			"code":    d.Code,
			"message": d.Message,
			"file":    d.File,
			"line":    d.Line,
			"column":  d.Column,
		}
		var err error
		if doc, err = sjson.Set(doc, "diagnostics.-1", entry); err != nil {
			return "", err
		}
	}
	return doc, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
