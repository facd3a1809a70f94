package jsearch

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchemaJSON describes the fields Normalize reads. Unknown fields are
// allowed; providers add new ones without notice.
const recordSchemaJSON = `{
  "type": "object",
  "required": ["job_id", "job_title"],
  "properties": {
    "job_id":              {"type": "string", "minLength": 1},
    "job_title":           {"type": "string", "minLength": 1},
    "job_city":            {"type": ["string", "null"]},
    "job_country":         {"type": ["string", "null"]},
    "job_location":        {"type": ["string", "null"]},
    "job_min_salary":      {"type": ["number", "string", "null"]},
    "job_employment_type": {"type": ["string", "null"]},
    "job_description":     {"type": ["string", "null"]},
    "job_publisher":       {"type": ["string", "null"]},
    "job_apply_link":      {"type": ["string", "null"]},
    "job_google_link":     {"type": ["string", "null"]},
    "employer_logo":       {"type": ["string", "null"]}
  }
}`

var recordSchema = mustSchema(recordSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("jsearch: invalid record schema: %v", err))
	}
	return s
}

// validateRecord checks raw against the record schema and folds every
// violation into a single ErrRecordInvalid.
func validateRecord(raw RawJob) error {
	res, err := recordSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecordInvalid, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrRecordInvalid, strings.Join(msgs, "; "))
}
