package jsearch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Devjadhav25/Prashikshan-sub001/internal/model"
)

// Defaults applied to fields a provider record leaves out.
const (
	DefaultSalary      = 45000
	DefaultDescription = "No description provided."
	DefaultJobType     = "Full Time"
	DefaultSkill       = "Contact Recruiter"
	DefaultPublisher   = "JSearch"
	apiTag             = "API"
)

// record is the subset of a JSearch listing the normalizer reads. Nullable
// strings decode to "".
type record struct {
	JobID             string `json:"job_id"`
	JobTitle          string `json:"job_title"`
	JobCity           string `json:"job_city"`
	JobCountry        string `json:"job_country"`
	JobLocation       string `json:"job_location"`
	JobMinSalary      salary `json:"job_min_salary"`
	JobEmploymentType string `json:"job_employment_type"`
	JobDescription    string `json:"job_description"`
	JobPublisher      string `json:"job_publisher"`
	JobApplyLink      string `json:"job_apply_link"`
	JobGoogleLink     string `json:"job_google_link"`
	EmployerLogo      string `json:"employer_logo"`
}

// salary decodes job_min_salary, which some publishers send as text.
// Null and unparseable text decode to zero.
type salary float64

func (s *salary) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*s = salary(t)
	case string:
		clean := strings.NewReplacer(",", "", "$", "", " ", "").Replace(t)
		if f, err := strconv.ParseFloat(clean, 64); err == nil {
			*s = salary(f)
		}
	}
	return nil
}

// employmentTypes maps JSearch employment codes to display values.
var employmentTypes = map[string]string{
	"fulltime":   "Full Time",
	"parttime":   "Part Time",
	"contractor": "Contract",
	"contract":   "Contract",
	"intern":     "Internship",
	"internship": "Internship",
	"temporary":  "Temporary",
}

// Normalize translates one raw record into a canonical Job owned by owner.
// Records failing the structural schema or lacking a usable title or
// job_id return an error wrapping ErrRecordInvalid.
func Normalize(raw RawJob, owner string) (*model.Job, error) {
	if err := validateRecord(raw); err != nil {
		return nil, err
	}

	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordInvalid, err)
	}

	title := strings.TrimSpace(r.JobTitle)
	if title == "" {
		return nil, fmt.Errorf("%w: job_title is blank", ErrRecordInvalid)
	}
	externalID := strings.TrimSpace(r.JobID)
	if externalID == "" {
		return nil, fmt.Errorf("%w: job_id is blank", ErrRecordInvalid)
	}

	pay := float64(DefaultSalary)
	if r.JobMinSalary > 0 {
		pay = float64(r.JobMinSalary)
	}

	description := strings.TrimSpace(r.JobDescription)
	if description == "" {
		description = DefaultDescription
	}

	source := strings.TrimSpace(r.JobPublisher)
	if source == "" {
		source = DefaultPublisher
	}

	job := &model.Job{
		ExternalID:   &externalID,
		Title:        title,
		Description:  description,
		Location:     location(r),
		Salary:       pay,
		SalaryType:   model.SalaryYear,
		Negotiable:   false,
		JobType:      jobTypes(r.JobEmploymentType),
		Tags:         []string{title, apiTag},
		Skills:       []string{DefaultSkill},
		CreatedBy:    owner,
		Source:       source,
		ApplyLink:    optional(r.JobApplyLink),
		ExternalLink: optional(firstNonEmpty(r.JobGoogleLink, r.JobApplyLink)),
		EmployerLogo: optional(r.EmployerLogo),
	}
	return job, nil
}

// location prefers "city, country", then the provider's free-text location,
// then whichever of city or country is known.
func location(r record) string {
	city := strings.TrimSpace(r.JobCity)
	country := strings.TrimSpace(r.JobCountry)
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case strings.TrimSpace(r.JobLocation) != "":
		return strings.TrimSpace(r.JobLocation)
	case city != "":
		return city
	case country != "":
		return country
	}
	return model.DefaultLocation
}

func jobTypes(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := strings.Map(func(r rune) rune {
			if r == '-' || r == '_' || r == ' ' {
				return -1
			}
			return r
		}, strings.ToLower(part))
		if v, ok := employmentTypes[key]; ok {
			part = v
		}
		out = model.AddUnique(out, part)
	}
	if len(out) == 0 {
		return []string{DefaultJobType}
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
