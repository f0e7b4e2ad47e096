// Package crawler defines core types shared across subsystems.
package crawler

// Strategy tags how a source adapter reaches its platform.
type Strategy string

// Adapter strategies.
const (
	StrategyAPI     Strategy = "api"
	StrategyBrowser Strategy = "browser"
)

// Query is one logical job search fanned out to every requested source.
// Duration and DaysPerWeek only apply to internship searches.
type Query struct {
	Position    string   `json:"position"`
	City        string   `json:"city"`
	Experience  string   `json:"experience"`
	Education   string   `json:"education"`
	Salary      string   `json:"salary"`
	Duration    string   `json:"duration,omitempty"`
	DaysPerWeek string   `json:"days_per_week,omitempty"`
	Page        int      `json:"page"`
	PageSize    int      `json:"page_size"`
	Sources     []string `json:"sources"`
}

// JobRecord is the canonical, normalized job posting.
type JobRecord struct {
	Title              string   `json:"title"`
	Company            string   `json:"company"`
	SalaryRange        string   `json:"salary_range"`
	City               string   `json:"city"`
	ExperienceRequired string   `json:"experience_required"`
	EducationRequired  string   `json:"education_required"`
	CompanyType        string   `json:"company_type"`
	CompanySize        string   `json:"company_size"`
	Skills             []string `json:"skills"`
	Benefits           []string `json:"benefits"`
	SourceURL          string   `json:"source_url"`
	SourceName         string   `json:"source_name"`
	PublishTime        string   `json:"publish_time"`
	// Internship listings only.
	Duration    string `json:"duration,omitempty"`
	DaysPerWeek string `json:"days_per_week,omitempty"`
}

// RawRecord is a platform-shaped record before normalization. Each adapter
// supplies the mapping from its own shape to JobRecord.
type RawRecord interface {
	JobRecord() JobRecord
}

// Outcome is the result of one adapter call: either raw records or a failure.
type Outcome struct {
	Source  string
	Records []RawRecord
	Err     *SourceError
}

// Success builds a successful outcome.
func Success(source string, records []RawRecord) Outcome {
	return Outcome{Source: source, Records: records}
}

// Failure builds a failed outcome.
func Failure(source string, kind ErrorKind, detail string) Outcome {
	return Outcome{Source: source, Err: &SourceError{Kind: kind, Detail: detail}}
}

// FailureFrom classifies err into a failed outcome.
func FailureFrom(source string, err error) Outcome {
	return Outcome{Source: source, Err: Classify(err)}
}

// OK reports whether the adapter succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Statistics summarizes a report.
type Statistics struct {
	Total    int            `json:"total"`
	BySource map[string]int `json:"by_source"`
}

// Report is the aggregated answer to a Query.
type Report struct {
	// RunID identifies the run in logs and archives; it is not part of the
	// report schema.
	RunID      string            `json:"-"`
	Success    bool              `json:"success"`
	Params     Query             `json:"params"`
	Statistics Statistics        `json:"statistics"`
	Jobs       []JobRecord       `json:"jobs"`
	Errors     map[string]string `json:"errors"`
}

// SourceInfo describes a registered adapter.
type SourceInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Strategy    Strategy `json:"strategy"`
}
