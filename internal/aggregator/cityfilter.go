package aggregator

import (
	"strings"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

var citySeparators = strings.NewReplacer("-", "·", " ", "·")

// FilterByCity keeps jobs located in city, plus jobs with no city at all.
// When fewer than minResults match, unmatched jobs are appended in order
// until minResults is reached.
func FilterByCity(jobs []crawler.JobRecord, city string, minResults int) []crawler.JobRecord {
	want := strings.ToLower(strings.TrimSpace(city))
	if want == "" {
		return jobs
	}
	matched := make([]crawler.JobRecord, 0, len(jobs))
	var unmatched []crawler.JobRecord
	for _, job := range jobs {
		if cityMatches(job.City, want) {
			matched = append(matched, job)
			continue
		}
		unmatched = append(unmatched, job)
	}
	if need := minResults - len(matched); need > 0 && len(unmatched) > 0 {
		if need > len(unmatched) {
			need = len(unmatched)
		}
		matched = append(matched, unmatched[:need]...)
	}
	return matched
}

func cityMatches(jobCity, want string) bool {
	normalized := citySeparators.Replace(strings.ToLower(strings.TrimSpace(jobCity)))
	if normalized == "" {
		return true
	}
	main, _, _ := strings.Cut(normalized, "·")
	return strings.Contains(normalized, want) ||
		strings.Contains(main, want) ||
		(main != "" && strings.Contains(want, main))
}
