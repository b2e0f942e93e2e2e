package layout

import "fmt"

// Handle is one of the eight resize grips on a block's border.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTop
	HandleTopRight
	HandleRight
	HandleBottomRight
	HandleBottom
	HandleBottomLeft
	HandleLeft
)

var handleNames = [...]string{
	HandleNone:        "",
	HandleTopLeft:     "top-left",
	HandleTop:         "top",
	HandleTopRight:    "top-right",
	HandleRight:       "right",
	HandleBottomRight: "bottom-right",
	HandleBottom:      "bottom",
	HandleBottomLeft:  "bottom-left",
	HandleLeft:        "left",
}

// Handles lists every resize grip, clockwise from the top-left corner.
var Handles = []Handle{
	HandleTopLeft, HandleTop, HandleTopRight, HandleRight,
	HandleBottomRight, HandleBottom, HandleBottomLeft, HandleLeft,
}

// edges tells which side of each axis a handle drags: -1 moves the
// left/top edge (the opposite edge is the anchor), +1 moves the
// right/bottom edge, 0 leaves the axis alone.
type edges struct {
	dx, dy int
}

var handleEdges = map[Handle]edges{
	HandleTopLeft:     {-1, -1},
	HandleTop:         {0, -1},
	HandleTopRight:    {1, -1},
	HandleRight:       {1, 0},
	HandleBottomRight: {1, 1},
	HandleBottom:      {0, 1},
	HandleBottomLeft:  {-1, 1},
	HandleLeft:        {-1, 0},
}

// Valid reports whether h names a real grip.
func (h Handle) Valid() bool {
	_, ok := handleEdges[h]
	return ok
}

func (h Handle) String() string {
	if h < 0 || int(h) >= len(handleNames) {
		return fmt.Sprintf("Handle(%d)", int(h))
	}
	return handleNames[h]
}

// ParseHandle maps a grip name such as "bottom-right" to its Handle.
func ParseHandle(s string) (Handle, error) {
	for _, h := range Handles {
		if handleNames[h] == s {
			return h, nil
		}
	}
	return HandleNone, fmt.Errorf("unknown resize handle %q", s)
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*h = HandleNone
		return nil
	}
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
