package core

import "time"

// MarkerTag identifies a persisted record as belonging to this system.
// Files whose tag list does not include it are ignored during scans.
const MarkerTag = "sticky"

// Color is the visual color of a note.
type Color string

const (
	ColorYellow Color = "yellow"
	ColorPink   Color = "pink"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorOrange Color = "orange"
)

// Colors lists every valid color.
var Colors = []Color{ColorYellow, ColorPink, ColorBlue, ColorGreen, ColorPurple, ColorOrange}

// Valid reports whether c is one of the known colors.
func (c Color) Valid() bool {
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}

// Size is the visual size of a note.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Valid reports whether s is one of the known sizes.
func (s Size) Valid() bool {
	return s == SizeSmall || s == SizeMedium || s == SizeLarge
}

// Position is the screen placement of a note.
type Position struct {
	X      float64
	Y      float64
	ZIndex int
}

// Dimensions is the rendered size of a note. Both values are strictly positive.
type Dimensions struct {
	Width  float64
	Height float64
}

// Appearance groups the visual attributes of a note.
type Appearance struct {
	Color    Color
	Size     Size
	Rotation float64
}

// Meta holds bookkeeping fields. Tags, Links and Attachments behave as sets:
// order is irrelevant and duplicates collapse on merge.
type Meta struct {
	Created     time.Time
	Modified    time.Time
	Tags        []string
	Links       []string
	Attachments []string
}

// Note is the central entity: free-form text with screen placement, visual
// appearance and a completion flag, persisted one file per note.
type Note struct {
	ID         string
	FilePath   string
	Title      string
	Content    string
	Position   Position
	Dimensions Dimensions
	Appearance Appearance
	Metadata   Meta
	Completed  bool
}

// Clone returns a deep copy. Slices in Metadata are copied so callers can
// mutate the clone without aliasing the original.
func (n Note) Clone() Note {
	out := n
	out.Metadata.Tags = append([]string(nil), n.Metadata.Tags...)
	out.Metadata.Links = append([]string(nil), n.Metadata.Links...)
	out.Metadata.Attachments = append([]string(nil), n.Metadata.Attachments...)
	return out
}

// Bounds delimits the canvas a note position must lie within.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// DefaultBounds returns the canvas bounds used when none are configured.
func DefaultBounds() Bounds {
	return Bounds{MinX: 0, MinY: 0, MaxX: 10000, MaxY: 10000}
}

// Contains reports whether p lies within b.
func (b Bounds) Contains(p Position) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// DefaultAppearance returns the documented appearance defaults.
func DefaultAppearance() Appearance {
	return Appearance{Color: ColorYellow, Size: SizeMedium, Rotation: 0}
}

// DefaultDimensions returns the documented dimension defaults.
func DefaultDimensions() Dimensions {
	return Dimensions{Width: 200, Height: 150}
}
