package plan

import (
	"testing"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		runs    int
		want    int
		wantSeq []Unit
	}{
		{
			name: "two samples two runs",
			ids:  []string{"A", "B"},
			runs: 2,
			want: 4,
			wantSeq: []Unit{
				{SampleID: "A", Run: 1},
				{SampleID: "A", Run: 2},
				{SampleID: "B", Run: 1},
				{SampleID: "B", Run: 2},
			},
		},
		{
			name:    "single run",
			ids:     []string{"x", "y", "z"},
			runs:    1,
			want:    3,
			wantSeq: []Unit{{SampleID: "x", Run: 1}, {SampleID: "y", Run: 1}, {SampleID: "z", Run: 1}},
		},
		{
			name: "no samples",
			ids:  nil,
			runs: 3,
			want: 0,
		},
		{
			name: "zero runs yields empty plan",
			ids:  []string{"A"},
			runs: 0,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := Build(tt.ids, tt.runs)

			if len(units) != tt.want {
				t.Fatalf("len = %d, want %d", len(units), tt.want)
			}
			for i, want := range tt.wantSeq {
				if units[i] != want {
					t.Errorf("units[%d] = %+v, want %+v", i, units[i], want)
				}
			}
		})
	}
}

func TestBuildSize(t *testing.T) {
	// |samples| x N units for any sample count and run count.
	for _, s := range []int{1, 5, 40} {
		for _, n := range []int{1, 3, 10} {
			ids := make([]string, s)
			for i := range ids {
				ids[i] = string(rune('a' + i))
			}
			if got := len(Build(ids, n)); got != s*n {
				t.Errorf("Build(%d samples, %d runs) = %d units, want %d", s, n, got, s*n)
			}
		}
	}
}

func TestBuildRunIndicesStartAtOne(t *testing.T) {
	units := Build([]string{"A"}, 3)
	for i, unit := range units {
		if unit.Run != i+1 {
			t.Errorf("units[%d].Run = %d, want %d", i, unit.Run, i+1)
		}
	}
}
