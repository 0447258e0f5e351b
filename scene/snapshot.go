package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
)

// jitterStream separates the PCG stream used for light jitter from any
// other use of the frame seed.
const jitterStream = 0x9e3779b97f4a7c15

// Snapshot is the frozen input of one frame.
type Snapshot struct {
	Occluders     []Occluder `json:"occluders"`
	Lights        []Light    `json:"lights"`
	Skylights     []Skylight `json:"skylights,omitempty"`
	SkylightMasks []Mask     `json:"skylightMasks,omitempty"`

	// Seed drives light jitter. Two frames with the same snapshot and seed
	// produce identical output.
	Seed uint64 `json:"seed,omitempty"`
}

// Resolve returns a copy of the snapshot whose lights have jitter applied
// and whose non-contributing lights are removed. The receiver is not
// modified; occluder and mask slices are shared with the result.
func (s *Snapshot) Resolve() Snapshot {
	out := Snapshot{
		Occluders:     s.Occluders,
		Skylights:     s.Skylights,
		SkylightMasks: s.SkylightMasks,
		Seed:          s.Seed,
		Lights:        make([]Light, 0, len(s.Lights)),
	}
	rng := rand.New(rand.NewPCG(s.Seed, jitterStream))
	for _, l := range s.Lights {
		// Draw for every light so one light's settings never shift the
		// random sequence seen by the next.
		di := rng.Float64()*2 - 1
		dx := rng.Float64()*2 - 1
		dy := rng.Float64()*2 - 1
		if l.JitterIntensity != 0 || l.JitterTranslation != 0 {
			l.Intensity += di * l.JitterIntensity
			l.Position.X += dx * l.JitterTranslation
			l.Position.Y += dy * l.JitterTranslation
			l.JitterIntensity, l.JitterTranslation = 0, 0
		}
		if !l.Contributes() {
			continue
		}
		out.Lights = append(out.Lights, l)
	}
	return out
}

// SkyRadiance returns the sum of all skylight colors scaled by their
// intensities. Non-finite skylights are ignored.
func (s *Snapshot) SkyRadiance() RGB {
	var sum RGB
	for _, sky := range s.Skylights {
		c := sky.Color.Scale(sky.Intensity)
		if !c.IsFinite() || sky.Intensity <= 0 {
			continue
		}
		sum = sum.Add(c)
	}
	return sum.Bounded()
}

// Shielded reports whether p lies under any of the skylight masks.
func Shielded(masks []Mask, p Vec2) bool {
	for _, m := range masks {
		if m.Contains(p) {
			return true
		}
	}
	return false
}

// LoadJSON decodes a snapshot from r.
func LoadJSON(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scene: decode snapshot: %w", err)
	}
	return &s, nil
}

// LoadFile reads a JSON snapshot from path.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return LoadJSON(f)
}

// WriteJSON encodes the snapshot to w as indented JSON.
func (s *Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("scene: encode snapshot: %w", err)
	}
	return nil
}
