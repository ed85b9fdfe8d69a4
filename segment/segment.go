// Package segment splits extracted legal text into labeled sections.
//
// A line containing "Section" or "Article" anywhere in it opens a new
// section. The match is a case-sensitive substring test, so lines such as
// "as required by Section 4" also open a section.
package segment

import (
	"strings"

	"github.com/poiesic/codex/core"
)

const (
	// MaxLabelLength bounds the label taken from a boundary line, in runes.
	MaxLabelLength = 20

	preambleLabel = "Preamble"
	generalLabel  = "1"
	generalTitle  = "General"
)

var boundaryMarkers = []string{"Section", "Article"}

// IsBoundary reports whether line opens a new section.
func IsBoundary(line string) bool {
	for _, marker := range boundaryMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// Label derives a section label from a boundary line.
func Label(line string) string {
	return core.Prefix(strings.TrimSpace(line), MaxLabelLength)
}

// Split scans raw line by line and returns the sections in document order.
// Text without any boundary yields a single "General" section, and empty
// text yields none.
func Split(raw string) []core.SectionDraft {
	var (
		drafts   []core.SectionDraft
		label    string
		open     bool
		lines    []string
		preamble []string
	)

	emit := func(label, title string, content []string) {
		drafts = append(drafts, core.SectionDraft{
			Label:   label,
			Title:   title,
			Content: strings.Join(content, "\n"),
			Order:   len(drafts),
		})
	}

	for _, line := range strings.Split(raw, "\n") {
		if !IsBoundary(line) {
			if open {
				lines = append(lines, line)
			} else {
				preamble = append(preamble, line)
			}
			continue
		}

		if open {
			emit(label, title(label), lines)
		} else if hasText(preamble) {
			emit(preambleLabel, preambleLabel, preamble)
		}
		label = Label(line)
		open = true
		lines = nil
	}

	if open {
		emit(label, title(label), lines)
		return drafts
	}

	if raw != "" {
		emit(generalLabel, generalTitle, []string{raw})
	}
	return drafts
}

func title(label string) string {
	return "Section " + label
}

func hasText(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}
