// Package plan expands the sample set into the ordered sequence of work
// units a pass must satisfy: every sample crossed with every run index,
// sample-major, run-minor.
package plan

// Unit identifies one required classification call: a sample paired with a
// run index in [1..runs].
type Unit struct {
	SampleID string
	Run      int
}

// Build expands sampleIDs x runs into the full ordered unit sequence.
// Sample order is preserved and run indices are nested within each sample.
// Pure function; runs < 1 yields an empty plan.
func Build(sampleIDs []string, runs int) []Unit {
	if runs < 1 {
		return nil
	}

	units := make([]Unit, 0, len(sampleIDs)*runs)
	for _, id := range sampleIDs {
		for run := 1; run <= runs; run++ {
			units = append(units, Unit{SampleID: id, Run: run})
		}
	}
	return units
}
