package holiday

import (
	"holidayd/internal/model"
	"holidayd/internal/week"
)

// Filter keeps the holidays whose date lies within r, boundaries included,
// in their original order.
func Filter(holidays []model.Holiday, r week.Range) []model.Holiday {
	out := make([]model.Holiday, 0)
	for _, h := range holidays {
		if r.Contains(h.Date) {
			out = append(out, h)
		}
	}
	return out
}
