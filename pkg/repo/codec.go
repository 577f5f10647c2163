package repo

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/telmoq/stickysync/pkg/core"
	"github.com/telmoq/stickysync/pkg/restore"
)

// errNotRecord marks files that are valid markdown but not sticky records
// (no frontmatter, or no marker tag). Scans skip them silently.
var errNotRecord = errors.New("not a sticky record")

// header is the persisted frontmatter block. Field order here is the order
// written to disk.
type header struct {
	ID          string           `yaml:"id"`
	Tags        []string         `yaml:"tags"`
	Completed   bool             `yaml:"completed"`
	Position    positionHeader   `yaml:"position"`
	Dimensions  dimensionsHeader `yaml:"dimensions"`
	Appearance  appearanceHeader `yaml:"appearance"`
	Created     time.Time        `yaml:"created"`
	Modified    time.Time        `yaml:"modified"`
	Links       []string         `yaml:"links,omitempty"`
	Attachments []string         `yaml:"attachments,omitempty"`
}

type positionHeader struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z int     `yaml:"z"`
}

type dimensionsHeader struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type appearanceHeader struct {
	Color    string  `yaml:"color"`
	Size     string  `yaml:"size"`
	Rotation float64 `yaml:"rotation"`
}

// encodeNote serializes a note as a frontmatter header followed by a blank
// line, a title heading, and the free-text body.
func encodeNote(n core.Note) ([]byte, error) {
	tags := n.Metadata.Tags
	if !containsString(tags, core.MarkerTag) {
		tags = append([]string{core.MarkerTag}, tags...)
	}

	h := header{
		ID:        n.ID,
		Tags:      tags,
		Completed: n.Completed,
		Position:  positionHeader{X: n.Position.X, Y: n.Position.Y, Z: n.Position.ZIndex},
		Dimensions: dimensionsHeader{
			Width:  n.Dimensions.Width,
			Height: n.Dimensions.Height,
		},
		Appearance: appearanceHeader{
			Color:    string(n.Appearance.Color),
			Size:     string(n.Appearance.Size),
			Rotation: n.Appearance.Rotation,
		},
		Created:     n.Metadata.Created,
		Modified:    n.Metadata.Modified,
		Links:       n.Metadata.Links,
		Attachments: n.Metadata.Attachments,
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(h); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	encoder.Close()
	buf.WriteString("---\n\n")

	if n.Title != "" {
		buf.WriteString("# " + n.Title + "\n\n")
	}
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// decodeNote parses a persisted record. The header is treated as untrusted:
// after the record-level checks (frontmatter present, marker tag, id and
// completion keys) every field goes through the restoration validator, which
// repairs rather than rejects.
func decodeNote(text string, v *restore.Validator) (core.Note, []restore.Warning, error) {
	data := []byte(text)
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return core.Note{}, nil, errNotRecord
	}

	head, body, ok := cutFrontmatter(data[3:])
	if !ok {
		return core.Note{}, nil, errors.New("frontmatter started but no closing delimiter found")
	}

	var raw map[string]any
	if err := yaml.Unmarshal(head, &raw); err != nil {
		return core.Note{}, nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	if !hasMarkerTag(raw["tags"]) {
		return core.Note{}, nil, errNotRecord
	}
	if id, ok := raw["id"].(string); !ok || id == "" {
		return core.Note{}, nil, errors.New("record missing id")
	}
	if _, ok := raw["completed"]; !ok {
		return core.Note{}, nil, errors.New("record missing completion flag")
	}

	n, warns := v.ValidateAndCorrectNote(raw)
	n.Title, n.Content = splitBody(string(body))
	return n, warns, nil
}

// cutFrontmatter splits the header from the body at the first "---" that
// stands alone on its own line. A "---" embedded in a header value does not
// close the block.
func cutFrontmatter(data []byte) (head, body []byte, ok bool) {
	offset := 0
	for offset < len(data) {
		end := len(data)
		next := len(data)
		if i := bytes.IndexByte(data[offset:], '\n'); i >= 0 {
			end = offset + i
			next = end + 1
		}
		line := bytes.TrimRight(data[offset:end], "\r")
		if bytes.Equal(line, []byte("---")) {
			return data[:offset], data[next:], true
		}
		offset = next
	}
	return nil, nil, false
}

// splitBody separates the leading title heading from the free-text body.
func splitBody(body string) (title, content string) {
	body = strings.TrimPrefix(body, "\r\n")
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\n")

	if !strings.HasPrefix(body, "# ") {
		return "", body
	}

	line, rest, found := strings.Cut(body, "\n")
	title = strings.TrimPrefix(line, "# ")
	if !found {
		return title, ""
	}
	return title, strings.TrimPrefix(rest, "\n")
}

func hasMarkerTag(raw any) bool {
	switch tags := raw.(type) {
	case []any:
		for _, t := range tags {
			if s, ok := t.(string); ok && s == core.MarkerTag {
				return true
			}
		}
	case []string:
		return containsString(tags, core.MarkerTag)
	}
	return false
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
