package verification

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

const DefaultSchoolID = "11320406"

type Organization struct {
	ID         int    `json:"id"`
	IDExtended string `json:"idExtended"`
	Name       string `json:"name"`
	Domain     string `json:"domain"`
}

var defaultOrganization = Organization{
	ID:         11320406,
	IDExtended: "11320406",
	Name:       "Massachusetts Institute of Technology (Cambridge, MA)",
	Domain:     "MIT.EDU",
}

// Directory maps school ids to organizations. It is built once and only read
// afterwards, so concurrent lookups need no locking.
type Directory struct {
	orgs map[string]Organization
}

func DefaultDirectory() *Directory {
	return &Directory{
		orgs: map[string]Organization{
			DefaultSchoolID: defaultOrganization,
		},
	}
}

// LoadDirectory extends the default directory with a JSON object keyed by
// school id. Entries without a numeric id take it from the key.
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read organizations file: %w", err)
	}

	var extra map[string]Organization
	if err := json.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse organizations file %s: %w", path, err)
	}

	dir := DefaultDirectory()
	for schoolID, org := range extra {
		if org.Name == "" {
			return nil, fmt.Errorf("organization %q has no name", schoolID)
		}
		if org.ID == 0 {
			id, err := strconv.Atoi(schoolID)
			if err != nil {
				return nil, fmt.Errorf("organization %q has no numeric id", schoolID)
			}
			org.ID = id
		}
		if org.IDExtended == "" {
			org.IDExtended = schoolID
		}
		dir.orgs[schoolID] = org
	}

	return dir, nil
}

// Lookup resolves schoolID, falling back to the default organization.
// The bool reports whether schoolID itself was found.
func (d *Directory) Lookup(schoolID string) (Organization, bool) {
	if org, ok := d.orgs[schoolID]; ok {
		return org, true
	}
	return d.orgs[DefaultSchoolID], false
}

func (d *Directory) Len() int {
	return len(d.orgs)
}
