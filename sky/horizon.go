package sky

import (
	_ "embed"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/teranos/maestro/errors"
)

//go:embed horizon_box.jsonc
var builtinHorizonBox []byte

// Band is one declination band of a horizon box: declinations in
// (DecMin, DecMax] can be observed at hour angles [HAMin, HAMax].
type Band struct {
	DecMin, DecMax float64
	HAMin, HAMax   float64
}

// HorizonBox maps declination to the reachable hour-angle range.
type HorizonBox struct {
	Bands []Band
}

// ParseHorizonBox reads a box in the flat format
// [[decMin, decMax], [haMin, haMax], ...]. Comments and trailing commas are
// allowed. buffer (degrees) shrinks every hour-angle limit toward zero.
func ParseHorizonBox(data []byte, buffer float64) (*HorizonBox, error) {
	var flat [][]float64
	if err := json.Unmarshal(jsonc.ToJSON(data), &flat); err != nil {
		return nil, errors.Wrap(err, "parse horizon box")
	}
	if len(flat)%2 != 0 {
		return nil, errors.Newf("horizon box needs dec/HA pairs, got %d entries", len(flat))
	}

	box := &HorizonBox{}
	for i := 0; i < len(flat); i += 2 {
		dec, ha := flat[i], flat[i+1]
		if len(dec) != 2 || len(ha) != 2 {
			return nil, errors.Newf("horizon box entry %d: want two-element ranges", i/2)
		}
		if dec[0] >= dec[1] || ha[0] >= ha[1] {
			return nil, errors.Newf("horizon box entry %d: ranges must be ascending", i/2)
		}
		box.Bands = append(box.Bands, Band{
			DecMin: dec[0], DecMax: dec[1],
			HAMin: shrink(ha[0], buffer), HAMax: shrink(ha[1], buffer),
		})
	}
	sort.Slice(box.Bands, func(i, j int) bool { return box.Bands[i].DecMin < box.Bands[j].DecMin })
	return box, nil
}

func shrink(limit, buffer float64) float64 {
	switch {
	case limit > 0:
		return limit - buffer
	case limit < 0:
		return limit + buffer
	}
	return 0
}

// LoadHorizonBox reads a box from path, or the built-in box when path is empty.
func LoadHorizonBox(path string) (*HorizonBox, error) {
	if path == "" {
		return DefaultHorizonBox(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read horizon box %s", path)
	}
	box, err := ParseHorizonBox(data, 0)
	if err != nil {
		return nil, errors.WithDetailf(err, "file: %s", path)
	}
	return box, nil
}

// DefaultHorizonBox returns the built-in box.
func DefaultHorizonBox() *HorizonBox {
	box, err := ParseHorizonBox(builtinHorizonBox, 0)
	if err != nil {
		panic(errors.Wrap(err, "built-in horizon box"))
	}
	return box
}

// Flipped mirrors the box for a mount that has flipped across the meridian.
func (h *HorizonBox) Flipped() *HorizonBox {
	out := &HorizonBox{Bands: make([]Band, len(h.Bands))}
	for i, b := range h.Bands {
		out.Bands[i] = Band{DecMin: b.DecMin, DecMax: b.DecMax, HAMin: -b.HAMax, HAMax: -b.HAMin}
	}
	return out
}

// HourAngleLimits returns the hour-angle range for dec. ok is false when the
// declination is outside every band.
func (h *HorizonBox) HourAngleLimits(dec float64) (min, max float64, ok bool) {
	for _, b := range h.Bands {
		if b.DecMin < dec && dec <= b.DecMax {
			return b.HAMin, b.HAMax, true
		}
	}
	return 0, 0, false
}

// StaticWindow is the observability window of a fixed target: its transit
// time plus the box's hour-angle limits for its declination. A window lying
// wholly before now is moved forward one sidereal day. The zero Window is
// returned when the declination is unreachable.
func (h *HorizonBox) StaticWindow(ra, dec float64, loc Location, now time.Time) Window {
	haMin, haMax, ok := h.HourAngleLimits(dec)
	if !ok {
		return Window{}
	}
	transit := TransitTime(ra, loc, now)
	w := Window{
		Start: transit.Add(AngleToDuration(haMin)),
		End:   transit.Add(AngleToDuration(haMax)),
	}
	if !w.End.After(now) {
		w = w.Shift(SiderealDay)
	}
	return w
}
