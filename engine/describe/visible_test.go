package describe

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nathoo/ifcore/engine/enginetest"
	"github.com/nathoo/ifcore/types"
)

func TestVisible(t *testing.T) {
	tests := []struct {
		name string
		edit func([]types.Fact) []types.Fact
		want []string
	}{
		{"closed cupboard hides key", nil, []string{"orange", "cupboard", "cauldron", "herb", "clock"}},
		{"open cupboard shows key", func(fs []types.Fact) []types.Fact {
			var out []types.Fact
			for _, f := range fs {
				if f.String() != "closed(cupboard)" {
					out = append(out, f)
				}
			}
			return append(out, types.F("open", "cupboard"))
		}, []string{"orange", "cupboard", "cauldron", "herb", "clock", "key"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := enginetest.Defs()
			if tt.edit != nil {
				d.Init = tt.edit(d.Init)
			}
			w := enginetest.World(d)
			if diff := cmp.Diff(tt.want, Visible(w, "kitchen")); diff != "" {
				t.Errorf("Visible (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPerceived_IncludesHeldItems(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	if _, err := w.ApplyBatch(
		[]types.Fact{types.F("in", "orange", "inventory")},
		[]types.Fact{types.F("at", "orange", "kitchen")},
	); err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}

	got := map[string]bool{}
	for _, f := range Perceived(w) {
		got[f.String()] = true
	}
	for _, want := range []string{"in(orange,inventory)", "at(player,kitchen)", "exit(kitchen,pantry,north)", "wound(clock,0)"} {
		if !got[want] {
			t.Errorf("Perceived() missing %s", want)
		}
	}
	for _, hidden := range []string{"at(orange,kitchen)", "in(key,cupboard)", "at(jar,pantry)", "takeable(orange)"} {
		if got[hidden] {
			t.Errorf("Perceived() includes %s", hidden)
		}
	}
}
