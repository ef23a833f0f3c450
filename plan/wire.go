package plan

import (
	"encoding/json"
	"errors"
	"fmt"

	"drawbot.deeplocal.com/geom"
	"github.com/fxamacker/cbor/v2"
)

// ErrWeight is returned when a decoded line carries a weight outside
// [0, geom.MaxWeight].
var ErrWeight = errors.New("line weight out of range")

// document is the line list exchanged with the dashboard,
//
//	{"lines":[{"from":[x,y],"to":[x,y],"weight":w}, ...]}
type document struct {
	Lines []wireLine `json:"lines" cbor:"lines"`
}

type wireLine struct {
	From   [2]float64 `json:"from" cbor:"from"`
	To     [2]float64 `json:"to" cbor:"to"`
	Weight int        `json:"weight" cbor:"weight"`
}

func toDocument(lines []geom.Line) document {
	d := document{Lines: make([]wireLine, len(lines))}
	for i, l := range lines {
		d.Lines[i] = wireLine{
			From:   [2]float64{l.P1.X, l.P1.Y},
			To:     [2]float64{l.P2.X, l.P2.Y},
			Weight: l.Weight,
		}
	}
	return d
}

func (d document) lines() ([]geom.Line, error) {
	lines := make([]geom.Line, len(d.Lines))
	for i, w := range d.Lines {
		if w.Weight < 0 || w.Weight > geom.MaxWeight {
			return nil, fmt.Errorf("line %d: %w: %d", i, ErrWeight, w.Weight)
		}
		lines[i] = geom.L(geom.Pt(w.From[0], w.From[1]), geom.Pt(w.To[0], w.To[1]), w.Weight)
	}
	return lines, nil
}

// EncodeJSON encodes lines in the dashboard line list format.
func EncodeJSON(lines []geom.Line) ([]byte, error) {
	return json.Marshal(toDocument(lines))
}

// DecodeJSON decodes a line list encoded by EncodeJSON.
func DecodeJSON(data []byte) ([]geom.Line, error) {
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	lines, err := d.lines()
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return lines, nil
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encMode = em
}

// EncodeCBOR encodes lines in the CBOR rendition of the line list
// format, with the same field names as the JSON format.
func EncodeCBOR(lines []geom.Line) ([]byte, error) {
	return encMode.Marshal(toDocument(lines))
}

// DecodeCBOR decodes a line list encoded by EncodeCBOR.
func DecodeCBOR(data []byte) ([]geom.Line, error) {
	var d document
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	lines, err := d.lines()
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return lines, nil
}
