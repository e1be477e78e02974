package tuning

import (
	"strings"
	"testing"
)

func TestDefaultTableOrder(t *testing.T) {
	want := []string{
		"Standard", "DropD", "DoubleDropD", "DropC", "HalfStepDown",
		"FullStepDown", "DStandard", "CStandard", "OpenD", "OpenE",
		"OpenG", "OpenA", "OpenC", "OpenDm", "DADGAD", "C6", "ModalD",
	}
	got := Default().IDs()

	if len(got) != len(want) {
		t.Fatalf("got %d presets, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

}

func TestStandardPreset(t *testing.T) {
	p := Default().MustPreset("Standard")
	want := []StringTarget{
		{"E", 82.41, "6th"},
		{"A", 110, "5th"},
		{"D", 146.83, "4th"},
		{"G", 196, "3rd"},
		{"B", 246.94, "2nd"},
		{"E", 329.63, "1st"},
	}

	if len(p.Strings) != len(want) {
		t.Fatalf("got %d strings, want %d", len(p.Strings), len(want))
	}

	for i, s := range want {
		if p.Strings[i] != s {
			t.Errorf("string %d = %+v, want %+v", i, p.Strings[i], s)
		}
	}

}

func TestPresetIsACopy(t *testing.T) {
	table := Default()
	p := table.MustPreset("Standard")
	p.Strings[0].Frequency = 1
	p.Strings[0].Note = "X"

	again, _ := table.Preset("Standard")

	if again.Strings[0].Frequency != 82.41 || again.Strings[0].Note != "E" {
		t.Errorf("table changed through a returned preset: %+v", again.Strings[0])
	}

}

func TestUnknownPreset(t *testing.T) {
	if _, ok := Default().Preset("Banjo"); ok {
		t.Fatal("unexpected preset")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("MustPreset did not panic")
		}
	}()
	Default().MustPreset("Banjo")
}

func TestNextWraps(t *testing.T) {
	tbl := Default()

	if got := tbl.Next("Standard", -1); got != "ModalD" {
		t.Errorf("Next(Standard, -1) = %q", got)
	}

	if got := tbl.Next("ModalD", 1); got != "Standard" {
		t.Errorf("Next(ModalD, 1) = %q", got)
	}

	if got := tbl.Next("Standard", 2); got != "DoubleDropD" {
		t.Errorf("Next(Standard, 2) = %q", got)
	}

}

func TestPitchClass(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"C", 0, true},
		{"C#", 1, true},
		{"Db", 1, true},
		{"Eb", 3, true},
		{"D#", 3, true},
		{"B", 11, true},
		{"Cb", 11, true},
		{"B#", 0, true},
		{"a", 9, true},
		{"", 0, false},
		{"H", 0, false},
		{"E4", 0, false},
	}

	for _, tc := range tests {
		got, ok := PitchClass(tc.name)

		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("PitchClass(%q) = %d, %v; want %d, %v", tc.name, got, ok, tc.want, tc.ok)
		}

	}

	if !SameNote("Gb", "F#") || SameNote("E", "F") {
		t.Error("SameNote mismatch")
	}

}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"empty":     `[]`,
		"no id":     `[{name: x, strings: [{note: E, frequency: 82.41, label: 6th}]}]`,
		"duplicate": `[{id: a, strings: [{note: E, frequency: 1, label: x}]}, {id: a, strings: [{note: E, frequency: 1, label: x}]}]`,
		"no string": `[{id: a, strings: []}]`,
		"bad note":  `[{id: a, strings: [{note: X, frequency: 1, label: x}]}]`,
		"zero freq": `[{id: a, strings: [{note: E, frequency: 0, label: x}]}]`,
		"not yaml":  `{{{`,
	}

	for name, doc := range tests {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	tbl, err := Parse([]byte(strings.TrimSpace(`
- id: Bass
  strings:
    - {note: E, frequency: 41.2, label: 4th}
`)))

	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p := tbl.MustPreset("Bass"); p.Strings[0].Frequency != 41.2 {
		t.Errorf("unexpected preset %+v", p)
	}

}
