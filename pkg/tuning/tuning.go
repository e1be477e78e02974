/*
 * Package tuning holds the table of guitar tunings a tuner can target.
 */
package tuning

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

/*
 * Names of the twelve pitch classes, starting at C, using sharps.
 */
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

/*
 * StringTarget is the pitch one string should be tuned to.
 */
type StringTarget struct {
	Note      string  `yaml:"note"`
	Frequency float64 `yaml:"frequency"`
	Label     string  `yaml:"label"`
}

/*
 * Preset is a named tuning. Strings are in physical order, lowest first.
 */
type Preset struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Strings []StringTarget `yaml:"strings"`
}

/*
 * Table is an immutable, ordered set of presets.
 */
type Table struct {
	presets []Preset
	index   map[string]int
}

//go:embed presets.yaml
var builtin []byte

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

/*
 * Default returns the built-in table of tunings.
 */
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(builtin)

		if err != nil {
			panic(fmt.Sprintf("tuning: built-in presets: %v", err))
		}

		defaultTable = t
	})
	return defaultTable
}

/*
 * Parse decodes and validates a YAML list of presets.
 */
func Parse(data []byte) (*Table, error) {
	var presets []Preset

	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("cannot decode presets: %w", err)
	}

	if len(presets) == 0 {
		return nil, fmt.Errorf("no presets defined")
	}

	t := &Table{
		presets: presets,
		index:   make(map[string]int, len(presets)),
	}

	for i, p := range presets {
		if p.ID == "" {
			return nil, fmt.Errorf("preset #%d: missing id", i)
		}

		if _, dup := t.index[p.ID]; dup {
			return nil, fmt.Errorf("preset %q: duplicate id", p.ID)
		}

		if len(p.Strings) == 0 {
			return nil, fmt.Errorf("preset %q: no strings", p.ID)
		}

		for j, s := range p.Strings {
			if _, ok := PitchClass(s.Note); !ok {
				return nil, fmt.Errorf("preset %q string %d: unknown note %q", p.ID, j, s.Note)
			}

			if !(s.Frequency > 0) {
				return nil, fmt.Errorf("preset %q string %d: frequency must be positive, got %v", p.ID, j, s.Frequency)
			}

		}

		t.index[p.ID] = i
	}

	return t, nil
}

/*
 * Preset looks up a preset by id. The result is a copy, changing it does
 * not change the table.
 */
func (t *Table) Preset(id string) (Preset, bool) {
	i, ok := t.index[id]

	if !ok {
		return Preset{}, false
	}

	p := t.presets[i]
	p.Strings = append([]StringTarget(nil), p.Strings...)
	return p, true
}

/*
 * MustPreset is like Preset but panics on an unknown id. Selection is
 * restricted to IDs(), so an unknown id is a programming error.
 */
func (t *Table) MustPreset(id string) Preset {
	p, ok := t.Preset(id)

	if !ok {
		panic(fmt.Sprintf("tuning: unknown preset %q", id))
	}

	return p
}

/*
 * IDs returns the preset ids in table order.
 */
func (t *Table) IDs() []string {
	ids := make([]string, len(t.presets))

	for i, p := range t.presets {
		ids[i] = p.ID
	}

	return ids
}

/*
 * Len returns the number of presets.
 */
func (t *Table) Len() int {
	return len(t.presets)
}

/*
 * Next returns the id following id in table order, wrapping around. A
 * negative step walks backwards.
 */
func (t *Table) Next(id string, step int) string {
	n := len(t.presets)
	i := t.index[id]
	i = ((i+step)%n + n) % n
	return t.presets[i].ID
}

/*
 * PitchClass returns the index (0 = C) of a note name. Sharps ("#") and
 * flats ("b") are accepted, so "Eb" and "D#" are the same class.
 */
func PitchClass(name string) (int, bool) {
	name = strings.TrimSpace(name)

	if name == "" {
		return 0, false
	}

	base := -1

	switch strings.ToUpper(name[:1]) {
	case "C":
		base = 0
	case "D":
		base = 2
	case "E":
		base = 4
	case "F":
		base = 5
	case "G":
		base = 7
	case "A":
		base = 9
	case "B":
		base = 11
	default:
		return 0, false
	}

	for _, r := range name[1:] {
		switch r {
		case '#', '♯':
			base++
		case 'b', '♭':
			base--
		default:
			return 0, false
		}
	}

	return ((base % 12) + 12) % 12, true
}

/*
 * SameNote reports whether two note names denote the same pitch class.
 */
func SameNote(a, b string) bool {
	pa, okA := PitchClass(a)
	pb, okB := PitchClass(b)
	return okA && okB && pa == pb
}
