// Package conflict detects and resolves divergence between the file-persisted
// and in-memory (UI) versions of the same note.
//
// Resolution is deterministic per field:
//
//   - position: the UI always wins. The user may be mid-drag, so the UI's
//     last-known position is authoritative.
//   - title/content: the newer Modified timestamp wins; exact ties favor the
//     UI version.
//   - tags/links/attachments: lossless merge, the deduplicated union of both
//     sides, with Modified refreshed to resolution time.
//
// Everything here is pure and synchronous; persistence of the resolved note
// is the caller's responsibility.
package conflict

import (
	"time"

	"github.com/telmoq/stickysync/pkg/core"
)

// Kind classifies a detected conflict. More than one kind may apply to the
// same pair of versions.
type Kind string

const (
	KindPosition Kind = "position"
	KindContent  Kind = "content"
	KindMetadata Kind = "metadata"
)

// Strategy tags how a conflict set was resolved.
type Strategy string

const (
	StrategyFileWins Strategy = "file-wins"
	StrategyUIWins   Strategy = "ui-wins"
	StrategyMerge    Strategy = "merge"
)

// Report is the exhaustive result of DetectAll.
type Report struct {
	HasConflict bool
	Kinds       []Kind
}

// Detect returns the first conflict found between the two versions, in
// position, content, metadata order. Versions with different ids never
// conflict.
func Detect(fileNote, uiNote core.Note) (Kind, bool) {
	report := DetectAll(fileNote, uiNote)
	if !report.HasConflict {
		return "", false
	}
	return report.Kinds[0], true
}

// DetectAll returns every conflict kind that applies.
func DetectAll(fileNote, uiNote core.Note) Report {
	if fileNote.ID != uiNote.ID {
		return Report{}
	}

	var kinds []Kind
	if fileNote.Position != uiNote.Position {
		kinds = append(kinds, KindPosition)
	}
	if fileNote.Title != uiNote.Title || fileNote.Content != uiNote.Content {
		kinds = append(kinds, KindContent)
	}
	if !sameSet(fileNote.Metadata.Tags, uiNote.Metadata.Tags) ||
		!sameSet(fileNote.Metadata.Links, uiNote.Metadata.Links) ||
		!sameSet(fileNote.Metadata.Attachments, uiNote.Metadata.Attachments) {
		kinds = append(kinds, KindMetadata)
	}

	return Report{HasConflict: len(kinds) > 0, Kinds: kinds}
}

// Resolve applies a single kind's resolution onto acc.
func Resolve(kind Kind, fileNote, uiNote, acc core.Note, now time.Time) core.Note {
	switch kind {
	case KindPosition:
		acc.Position = uiNote.Position
	case KindContent:
		if fileNote.Metadata.Modified.After(uiNote.Metadata.Modified) {
			acc.Title = fileNote.Title
			acc.Content = fileNote.Content
			acc.Metadata.Modified = fileNote.Metadata.Modified
		} else {
			acc.Title = uiNote.Title
			acc.Content = uiNote.Content
		}
	case KindMetadata:
		acc.Metadata.Tags = union(fileNote.Metadata.Tags, uiNote.Metadata.Tags)
		acc.Metadata.Links = union(fileNote.Metadata.Links, uiNote.Metadata.Links)
		acc.Metadata.Attachments = union(fileNote.Metadata.Attachments, uiNote.Metadata.Attachments)
		acc.Metadata.Modified = now
	}
	return acc
}

// ResolveAll applies each detected kind's resolution in sequence onto an
// accumulator seeded from the UI version, returning the final merged note and
// the dominant strategy tag.
func ResolveAll(fileNote, uiNote core.Note, now time.Time) (core.Note, Strategy) {
	report := DetectAll(fileNote, uiNote)
	acc := uiNote.Clone()
	strategy := StrategyUIWins

	for _, kind := range report.Kinds {
		acc = Resolve(kind, fileNote, uiNote, acc, now)
		switch kind {
		case KindContent:
			if strategy != StrategyMerge && fileNote.Metadata.Modified.After(uiNote.Metadata.Modified) {
				strategy = StrategyFileWins
			}
		case KindMetadata:
			strategy = StrategyMerge
		}
	}

	return acc, strategy
}

func sameSet(a, b []string) bool {
	if len(toSet(a)) != len(toSet(b)) {
		return false
	}
	set := toSet(b)
	for _, item := range a {
		if !set[item] {
			return false
		}
	}
	return true
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// union preserves first-seen order: a's elements first, then b's new ones.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, item := range append(append([]string(nil), a...), b...) {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
