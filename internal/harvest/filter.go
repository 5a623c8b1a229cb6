package harvest

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/harvest-cli/internal/model"
)

// Filter keeps items whose label is in include (when non-empty) and not in
// exclude. Items with a duplicate id are dropped.
func Filter(items []model.WorkItem, include, exclude []string) []model.WorkItem {
	kept, _ := Partition(items, include, exclude)
	return kept
}

// Skip reasons recorded for items that never reach the state machine.
const (
	SkipNotIncluded = "not in include list"
	SkipExcluded    = "excluded"
	SkipDuplicate   = "duplicate item id"
)

// Partition splits items like Filter and returns a Skipped outcome for every
// item left out, in enumeration order.
func Partition(items []model.WorkItem, include, exclude []string) ([]model.WorkItem, []model.Outcome) {
	in := toSet(include)
	out := toSet(exclude)
	seen := make(map[string]bool, len(items))

	kept := make([]model.WorkItem, 0, len(items))
	var skipped []model.Outcome
	for _, it := range items {
		label := strings.TrimSpace(it.Label)
		switch {
		case len(in) > 0 && !in[label]:
			skipped = append(skipped, model.Skipped(it, SkipNotIncluded))
		case out[label]:
			skipped = append(skipped, model.Skipped(it, SkipExcluded))
		case seen[it.ID]:
			zap.L().Warn("duplicate work item dropped", zap.String("item_id", it.ID), zap.String("label", it.Label))
			skipped = append(skipped, model.Skipped(it, SkipDuplicate))
		default:
			seen[it.ID] = true
			kept = append(kept, it)
		}
	}
	return kept, skipped
}

func toSet(labels []string) map[string]bool {
	m := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			m[l] = true
		}
	}
	return m
}
