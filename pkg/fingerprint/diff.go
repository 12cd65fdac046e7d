package fingerprint

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// lineDiff compares two configurations line by line. It returns the number
// of added and removed lines and a listing of the changed lines prefixed
// with "+" or "-".
func lineDiff(oldText, newText string) (added, removed int, text string) {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(oldText, newText)
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCharsToLines(dmp.DiffCleanupMerge(diffs), lines)

	var b strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			continue
		}
		for _, line := range splitLines(d.Text) {
			if prefix == "+" {
				added++
			} else {
				removed++
			}
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return added, removed, b.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}
