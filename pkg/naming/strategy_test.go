package naming_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/telmoq/stickysync/pkg/naming"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTimestamp_RoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 30, 45, 123*1e6, time.Local)
	s := naming.NewTimestamp(fixedClock(at))

	name := s.GenerateFileName(context.Background(), naming.Intent{})
	if name != "Sticky-20240309-143045-123" {
		t.Fatalf("unexpected name: %s", name)
	}

	parsed, ok := s.ParseFileName(name)
	if !ok {
		t.Fatalf("generated name should parse: %s", name)
	}
	if !parsed.Timestamp.Equal(at) {
		t.Errorf("round trip lost precision: want %v, got %v", at, parsed.Timestamp)
	}
}

func TestTimestamp_ParseRejectsForeignNames(t *testing.T) {
	s := naming.NewTimestamp(nil)
	for _, name := range []string{"notes.md", "Sticky-0001", "Sticky-2024-143045-123", ""} {
		if _, ok := s.ParseFileName(name); ok {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestTimestamp_ParseToleratesExtension(t *testing.T) {
	s := naming.NewTimestamp(nil)
	if _, ok := s.ParseFileName("Sticky-20240309-143045-123.md"); !ok {
		t.Error("expected .md suffix to be tolerated")
	}
}

func listerOf(names ...string) func(context.Context, string) ([]string, error) {
	return func(context.Context, string) ([]string, error) {
		return names, nil
	}
}

func TestSequential_NextNumber(t *testing.T) {
	cases := []struct {
		name     string
		existing []string
		want     string
	}{
		{"empty folder", nil, "Sticky-0001"},
		{"continues from max", []string{"Sticky-0001.md", "Sticky-0007.md", "Sticky-0003.md"}, "Sticky-0008"},
		{"ignores unrelated names", []string{"groceries.md", "Sticky-0002.md", "Sticky-99999.md", "sticky-0005.md"}, "Sticky-0003"},
		{"only unrelated names", []string{"a.md", "b.txt"}, "Sticky-0001"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := naming.NewSequential("notes", listerOf(tc.existing...))
			got := s.GenerateFileName(context.Background(), naming.Intent{})
			if got != tc.want {
				t.Errorf("want %s, got %s", tc.want, got)
			}
			for _, existing := range tc.existing {
				if got+".md" == existing {
					t.Errorf("generated name %s already present", got)
				}
			}
		})
	}
}

func TestSequential_NoLister(t *testing.T) {
	s := naming.NewSequential("notes", nil)
	if got := s.GenerateFileName(context.Background(), naming.Intent{}); got != "Sticky-0001" {
		t.Errorf("want Sticky-0001, got %s", got)
	}
}

func TestSequential_ListerErrorDefaultsToOne(t *testing.T) {
	s := naming.NewSequential("notes", func(context.Context, string) ([]string, error) {
		return nil, fmt.Errorf("folder unreadable")
	})
	if got := s.GenerateFileName(context.Background(), naming.Intent{}); got != "Sticky-0001" {
		t.Errorf("want Sticky-0001, got %s", got)
	}
}

func TestCustom_Placeholders(t *testing.T) {
	at := time.Date(2024, 12, 1, 9, 5, 7, 42*1e6, time.Local)
	s := naming.NewCustom("note-{YYYY}{MM}{DD}-{HH}{mm}{ss}-{SSS}", fixedClock(at))

	got := s.GenerateFileName(context.Background(), naming.Intent{})
	if got != "note-20241201-090507-042" {
		t.Errorf("unexpected name: %s", got)
	}
}

func TestCustom_AppendsSuffixWithoutMilliseconds(t *testing.T) {
	at := time.Date(2024, 12, 1, 9, 5, 7, 0, time.Local)
	s := naming.NewCustom("note-{YYYY}{MM}{DD}", fixedClock(at))

	got := s.GenerateFileName(context.Background(), naming.Intent{})
	if !regexp.MustCompile(`^note-20241201-[a-z0-9]{4,}$`).MatchString(got) {
		t.Errorf("expected random suffix to be appended, got %s", got)
	}
}

func TestForKind_FallsBackToTimestamp(t *testing.T) {
	s := naming.ForKind("no-such-strategy", naming.Config{})
	if _, ok := s.(*naming.Timestamp); !ok {
		t.Errorf("expected timestamp fallback, got %T", s)
	}
}
