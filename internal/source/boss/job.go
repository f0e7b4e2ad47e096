package boss

import "github.com/Mouseminar/job-mcp/internal/crawler"

// Job is one card of the Boss直聘 listing.
type Job struct {
	Title      string
	Company    string
	Salary     string
	City       string
	Experience string
	Education  string
	Industry   string
	Scale      string
	Skills     []string
	Welfare    []string
	URL        string
}

// JobRecord implements crawler.RawRecord.
func (j Job) JobRecord() crawler.JobRecord {
	return crawler.JobRecord{
		Title:              j.Title,
		Company:            j.Company,
		SalaryRange:        j.Salary,
		City:               j.City,
		ExperienceRequired: j.Experience,
		EducationRequired:  j.Education,
		CompanyType:        j.Industry,
		CompanySize:        j.Scale,
		Skills:             j.Skills,
		Benefits:           j.Welfare,
		SourceURL:          j.URL,
	}
}
