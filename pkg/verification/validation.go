package verification

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const submissionSchema = `{
	"type": "object",
	"required": ["firstName", "lastName", "email", "birthDate", "verificationId"],
	"properties": {
		"firstName":      {"type": "string", "minLength": 1, "maxLength": 100},
		"lastName":       {"type": "string", "minLength": 1, "maxLength": 100},
		"email":          {"type": "string", "format": "email", "maxLength": 254},
		"birthDate":      {"type": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
		"verificationId": {"type": "string", "pattern": "^[A-Za-z0-9_-]+$"},
		"schoolId":       {"type": "string", "maxLength": 64}
	}
}`

const rootField = "(root)"

type submissionValidator struct {
	schema *gojsonschema.Schema
}

func newSubmissionValidator() (*submissionValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(submissionSchema))
	if err != nil {
		return nil, fmt.Errorf("compile submission schema: %w", err)
	}
	return &submissionValidator{schema: schema}, nil
}

// validate returns one problem per failed rule, empty when req is acceptable.
func (v *submissionValidator) validate(req Request) ([]string, error) {
	doc := map[string]any{}
	for key, val := range map[string]string{
		"firstName":      req.FirstName,
		"lastName":       req.LastName,
		"email":          req.Email,
		"birthDate":      req.BirthDate,
		"verificationId": req.VerificationID,
		"schoolId":       req.SchoolID,
	} {
		if strings.TrimSpace(val) != "" {
			doc[key] = val
		}
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	var problems []string
	for _, desc := range result.Errors() {
		if desc.Field() == rootField {
			problems = append(problems, desc.Description())
			continue
		}
		problems = append(problems, desc.Field()+": "+desc.Description())
	}

	if req.StudentCard == nil {
		problems = append(problems, "studentCard is required")
	}

	return problems, nil
}
