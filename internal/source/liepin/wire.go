package liepin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Mouseminar/job-mcp/internal/crawler"
)

type searchRequest struct {
	Data searchData `json:"data"`
}

type searchData struct {
	MainSearchPcConditionForm conditionForm   `json:"mainSearchPcConditionForm"`
	PassThroughForm           passThroughForm `json:"passThroughForm"`
}

type conditionForm struct {
	City         string `json:"city"`
	DQ           string `json:"dq"`
	PubTime      string `json:"pubTime"`
	CurrentPage  int    `json:"currentPage"`
	PageSize     int    `json:"pageSize"`
	Key          string `json:"key"`
	SuggestTag   string `json:"suggestTag"`
	WorkYearCode string `json:"workYearCode"`
	EduLevel     string `json:"eduLevel"`
	Salary       string `json:"salary"`
	IndustryType string `json:"industryType"`
	CompScale    string `json:"compScale"`
	JobKind      string `json:"jobKind"`
	SortFlag     string `json:"sortFlag"`
}

type passThroughForm struct {
	Scene string `json:"scene"`
	SkID  string `json:"skId"`
	FkID  string `json:"fkId"`
	CkID  string `json:"ckId"`
}

type searchResponse struct {
	Flag int    `json:"flag"`
	Msg  string `json:"msg"`
	Code string `json:"code"`
	Data *struct {
		Data *struct {
			JobCardList []jobCard `json:"jobCardList"`
		} `json:"data"`
	} `json:"data"`
}

type jobCard struct {
	Job  cardJob  `json:"job"`
	Comp cardComp `json:"comp"`
}

type cardJob struct {
	Title            string   `json:"title"`
	Salary           string   `json:"salary"`
	DQ               string   `json:"dq"`
	RequireWorkYears string   `json:"requireWorkYears"`
	RequireEduLevel  string   `json:"requireEduLevel"`
	Labels           labelSet `json:"labels"`
	JobID            flexID   `json:"jobId"`
	Link             string   `json:"link"`
	RefreshTime      string   `json:"refreshTime"`
}

type cardComp struct {
	CompName     string `json:"compName"`
	CompIndustry string `json:"compIndustry"`
	CompScale    string `json:"compScale"`
}

// labelSet accepts both the keyed form ({"skillLabels": [...], "compLabels":
// [...]}) and a bare list, which is treated as skills.
type labelSet struct {
	Skills  []string
	Company []string
}

func (l *labelSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '[':
		return json.Unmarshal(data, &l.Skills)
	}
	var keyed struct {
		SkillLabels []string `json:"skillLabels"`
		CompLabels  []string `json:"compLabels"`
	}
	if err := json.Unmarshal(data, &keyed); err != nil {
		return err
	}
	l.Skills, l.Company = keyed.SkillLabels, keyed.CompLabels
	return nil
}

// flexID tolerates job ids sent as numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("job id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// Job is one card of the 猎聘 search API.
type Job struct {
	card jobCard
}

// JobRecord implements crawler.RawRecord.
func (j Job) JobRecord() crawler.JobRecord {
	job, comp := j.card.Job, j.card.Comp
	return crawler.JobRecord{
		Title:              job.Title,
		Company:            comp.CompName,
		SalaryRange:        job.Salary,
		City:               job.DQ,
		ExperienceRequired: job.RequireWorkYears,
		EducationRequired:  job.RequireEduLevel,
		CompanyType:        comp.CompIndustry,
		CompanySize:        comp.CompScale,
		Skills:             job.Labels.Skills,
		Benefits:           job.Labels.Company,
		SourceURL:          jobURL(job),
		PublishTime:        job.RefreshTime,
	}
}

func jobURL(job cardJob) string {
	if job.JobID != "" {
		return fmt.Sprintf("https://www.liepin.com/job/%s.shtml", job.JobID)
	}
	return job.Link
}
