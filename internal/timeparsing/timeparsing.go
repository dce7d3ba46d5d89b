// Package timeparsing resolves the CLI's relaxed `--at`/`--from`/`--to`
// flags (SPEC_FULL.md Domain Stack): RFC3339 is tried first since that's
// the wire format spec §6 documents, falling back to olebedev/when's
// natural-language rules ("yesterday", "3 days ago", "last monday") for
// interactive use.
package timeparsing

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// Parse resolves raw into an absolute instant relative to now. Empty input
// resolves to the zero time (caller-defined default, e.g. "now" or
// "beginning of history").
func Parse(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	res, err := parser.Parse(raw, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", raw, err)
	}
	if res == nil {
		return time.Time{}, fmt.Errorf("could not resolve %q to a time", raw)
	}
	return res.Time.UTC(), nil
}
