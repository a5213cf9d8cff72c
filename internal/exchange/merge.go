package exchange

import "soon/internal/task"

// Merge returns the imported tasks whose id is not already in existing.
func Merge(existing, imported []task.Task) (added []task.Task, skipped int) {
	ids := make(map[string]bool, len(existing))
	for _, t := range existing {
		ids[t.ID] = true
	}
	for _, t := range imported {
		if ids[t.ID] {
			skipped++
			continue
		}
		ids[t.ID] = true
		added = append(added, t)
	}
	return added, skipped
}
