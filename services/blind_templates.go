package services

import (
	"fmt"
	"slices"

	"poker-tournament-system/models"
)

type blindStep struct {
	small, big, ante, minutes int
	isBreak                   bool
}

func step(small, big, ante, minutes int) blindStep {
	return blindStep{small: small, big: big, ante: ante, minutes: minutes}
}

func pause(minutes int) blindStep {
	return blindStep{minutes: minutes, isBreak: true}
}

var blindTemplates = map[string][]blindStep{
	"turbo": {
		step(25, 50, 0, 10), step(50, 100, 0, 10), step(75, 150, 0, 10), step(100, 200, 25, 10),
		pause(10),
		step(150, 300, 50, 10), step(200, 400, 50, 10), step(300, 600, 75, 10),
		step(400, 800, 100, 10), step(500, 1000, 100, 10), step(600, 1200, 200, 10),
	},
	"regular": {
		step(25, 50, 0, 15), step(50, 100, 0, 15), step(75, 150, 0, 15), step(100, 200, 25, 15),
		pause(15),
		step(150, 300, 25, 15), step(200, 400, 50, 15), step(300, 600, 75, 15),
		pause(10),
		step(400, 800, 100, 15), step(500, 1000, 100, 15), step(600, 1200, 200, 15),
	},
	"deep": {
		step(25, 50, 0, 20), step(50, 100, 0, 20), step(75, 150, 0, 20), step(100, 200, 0, 20),
		pause(15),
		step(125, 250, 25, 20), step(150, 300, 25, 20), step(200, 400, 50, 20), step(250, 500, 50, 20),
		pause(15),
		step(300, 600, 75, 20), step(400, 800, 100, 20), step(500, 1000, 100, 20), step(600, 1200, 200, 20),
	},
}

// BlindTemplateNames lists the built-in schedules.
func BlindTemplateNames() []string {
	names := make([]string, 0, len(blindTemplates))
	for name := range blindTemplates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// BlindTemplate returns a fresh copy of a built-in schedule.
func BlindTemplate(name string) ([]models.BlindLevel, error) {
	steps, ok := blindTemplates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	levels := make([]models.BlindLevel, len(steps))
	for i, st := range steps {
		levels[i] = models.BlindLevel{
			Order:           i + 1,
			SmallBlind:      st.small,
			BigBlind:        st.big,
			Ante:            st.ante,
			DurationMinutes: st.minutes,
			IsBreak:         st.isBreak,
		}
		if st.isBreak {
			levels[i].BreakDescription = "Break"
		}
	}
	return levels, nil
}

// normalizeLevels sorts by the requested order and renumbers 1..n.
func normalizeLevels(levels []models.BlindLevel) ([]models.BlindLevel, error) {
	out := slices.Clone(levels)
	slices.SortStableFunc(out, func(a, b models.BlindLevel) int { return a.Order - b.Order })
	for i := range out {
		if out[i].DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: blind level %d has no duration", ErrInvalidInput, i+1)
		}
		if !out[i].IsBreak && out[i].BigBlind < out[i].SmallBlind {
			return nil, fmt.Errorf("%w: blind level %d has big blind below small blind", ErrInvalidInput, i+1)
		}
		out[i].ID = ""
		out[i].Order = i + 1
	}
	return out, nil
}
