package domain

import "encoding/json"

type BlockType string

const (
	BlockTypePlot   BlockType = "plot"
	BlockTypeTable  BlockType = "table"
	BlockTypeMetric BlockType = "metric"
	BlockTypeChart  BlockType = "chart"
)

// Geometry is a block rectangle in canvas pixels, origin at the top-left.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (g Geometry) Right() float64  { return g.X + g.Width }
func (g Geometry) Bottom() float64 { return g.Y + g.Height }
func (g Geometry) IsZero() bool    { return g == Geometry{} }

// Block is one dashboard widget ("view" on the wire). Only the embedded
// Geometry is interpreted by the layout engine; everything else is carried.
type Block struct {
	ID          string
	Title       string
	Description string
	Type        BlockType
	Target      string
	Service     string
	Step        string
	Geometry

	// Extra holds wire members that have no field above (filter values,
	// schema_version, server bookkeeping). They round-trip untouched.
	Extra map[string]any
}

// WithGeometry returns a copy of b placed at g.
func (b Block) WithGeometry(g Geometry) Block {
	b.Geometry = g
	return b
}

// knownBlockKeys are the wire members mapped onto Block fields.
var knownBlockKeys = []string{
	"uuid", "title", "description", "type", "target", "service", "step",
	"x", "y", "width", "height",
}

type blockWire struct {
	ID          string    `json:"uuid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        BlockType `json:"type"`
	Target      string    `json:"target"`
	Service     string    `json:"service"`
	Step        string    `json:"step"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(b.Extra)+len(knownBlockKeys))
	for k, v := range b.Extra {
		m[k] = v
	}
	if b.ID != "" {
		m["uuid"] = b.ID
	}
	m["title"] = b.Title
	m["description"] = b.Description
	m["type"] = b.Type
	m["target"] = b.Target
	m["service"] = b.Service
	m["step"] = b.Step
	m["x"] = b.X
	m["y"] = b.Y
	m["width"] = b.Width
	m["height"] = b.Height
	return json.Marshal(m)
}

func (b *Block) UnmarshalJSON(data []byte) error {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var rest map[string]any
	if err := json.Unmarshal(data, &rest); err != nil {
		return err
	}
	for _, k := range knownBlockKeys {
		delete(rest, k)
	}
	*b = Block{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Type:        w.Type,
		Target:      w.Target,
		Service:     w.Service,
		Step:        w.Step,
		Geometry:    Geometry{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height},
	}
	if len(rest) > 0 {
		b.Extra = rest
	}
	return nil
}
