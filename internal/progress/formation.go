package progress

import "github.com/abhisek/campus/internal/catalog"

// FormationProgress sums the progress of started blocks and divides by the
// total block count, so untouched blocks pull the result down.
func FormationProgress(f catalog.Formation) float64 {
	if len(f.Blocks) == 0 {
		return 0
	}
	var sum float64
	for _, b := range f.Blocks {
		if BlockStarted(b) {
			sum += BlockProgress(b)
		}
	}
	return sum / float64(len(f.Blocks))
}

// FormationComplete reports whether every block passes.
func FormationComplete(f catalog.Formation) bool {
	if len(f.Blocks) == 0 {
		return false
	}
	for _, b := range f.Blocks {
		if !BlockPassed(b) {
			return false
		}
	}
	return Full(FormationProgress(f))
}
