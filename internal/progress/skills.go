package progress

import "github.com/abhisek/campus/internal/catalog"

// StartingCredit is what a skill with attempts but no score contributes.
const StartingCredit = 25.0

func skillStarted(s catalog.Skill) bool {
	return s.ScoreValue() > 0 || s.AttemptsValue() > 0
}

// SkillsStarted reports whether any skill has a score or an attempt.
func SkillsStarted(skills []catalog.Skill) bool {
	for _, s := range skills {
		if skillStarted(s) {
			return true
		}
	}
	return false
}

// AllSkillsStarted reports whether every skill has a score or an attempt.
// An empty list is not started.
func AllSkillsStarted(skills []catalog.Skill) bool {
	for _, s := range skills {
		if !skillStarted(s) {
			return false
		}
	}
	return len(skills) > 0
}

// SkillsProgress averages the started skills only. A scored skill counts its
// score; an attempted but unscored one counts StartingCredit.
func SkillsProgress(skills []catalog.Skill) float64 {
	var sum float64
	var n int
	for _, s := range skills {
		if !skillStarted(s) {
			continue
		}
		n++
		if score := s.ScoreValue(); score > 0 {
			sum += clamp(score)
		} else {
			sum += StartingCredit
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
