// Package normalize turns adapter records into canonical JobRecords.
package normalize

import (
	"strings"

	"go.uber.org/zap"

	"github.com/Mouseminar/job-mcp/internal/crawler"
	"github.com/Mouseminar/job-mcp/internal/logging"
	"github.com/Mouseminar/job-mcp/internal/metrics"
)

// Normalizer cleans records and drops the ones missing identity fields.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a Normalizer.
func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logging.OrNop(logger)}
}

// Normalize maps every raw record of one source. Records without a title or
// company are suppressed; the second return value counts them.
func (n *Normalizer) Normalize(source string, raw []crawler.RawRecord) ([]crawler.JobRecord, int) {
	out := make([]crawler.JobRecord, 0, len(raw))
	suppressed := 0
	for _, r := range raw {
		if r == nil {
			suppressed++
			continue
		}
		rec, ok := Record(source, r.JobRecord())
		if !ok {
			suppressed++
			continue
		}
		out = append(out, rec)
	}
	if suppressed > 0 {
		metrics.ObserveSuppressed(source, suppressed)
		n.logger.Info("suppressed incomplete records",
			zap.String("source", source),
			zap.Int("suppressed", suppressed),
			zap.Int("kept", len(out)),
		)
	}
	return out, suppressed
}

// Record normalizes a single record and stamps its source. It reports false
// when title or company is empty after cleaning.
func Record(source string, rec crawler.JobRecord) (crawler.JobRecord, bool) {
	rec.Title = collapse(rec.Title)
	rec.Company = collapse(rec.Company)
	if rec.Title == "" || rec.Company == "" {
		return crawler.JobRecord{}, false
	}
	rec.SalaryRange = collapse(rec.SalaryRange)
	rec.City = collapse(rec.City)
	rec.ExperienceRequired = collapse(rec.ExperienceRequired)
	rec.EducationRequired = collapse(rec.EducationRequired)
	rec.CompanyType = collapse(rec.CompanyType)
	rec.CompanySize = collapse(rec.CompanySize)
	rec.SourceURL = strings.TrimSpace(rec.SourceURL)
	rec.PublishTime = collapse(rec.PublishTime)
	rec.Duration = collapse(rec.Duration)
	rec.DaysPerWeek = collapse(rec.DaysPerWeek)
	rec.Skills = cleanList(rec.Skills, false)
	rec.Benefits = cleanList(rec.Benefits, true)
	rec.SourceName = source
	return rec, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanList(in []string, unique bool) []string {
	out := make([]string, 0, len(in))
	var seen map[string]struct{}
	if unique {
		seen = make(map[string]struct{}, len(in))
	}
	for _, item := range in {
		item = collapse(item)
		if item == "" {
			continue
		}
		if unique {
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}
