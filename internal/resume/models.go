// Package resume stores one resume per user and rewrites sections with the LLM.
package resume

import (
	"encoding/json"
	"time"
)

// ContactInfo is the resume header.
type ContactInfo struct {
	Email     string `json:"email,omitempty"`
	Mobile    string `json:"mobile,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
	Location  string `json:"location,omitempty"`
}

// Resume is the stored document. Entries of the list sections are kept as
// the client sent them.
type Resume struct {
	UserID         string            `json:"userId"`
	ContactInfo    ContactInfo       `json:"contactInfo"`
	Summary        string            `json:"summary"`
	Skills         string            `json:"skills"`
	Experience     []json.RawMessage `json:"experience"`
	Education      []json.RawMessage `json:"education"`
	Projects       []json.RawMessage `json:"projects"`
	Certifications []json.RawMessage `json:"certifications"`
	Content        string            `json:"content"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func (r *Resume) normalize() {
	for _, s := range []*[]json.RawMessage{&r.Experience, &r.Education, &r.Projects, &r.Certifications} {
		if *s == nil {
			*s = []json.RawMessage{}
		}
	}
}

func (r *Resume) clone() *Resume {
	cp := *r
	cp.Experience = append([]json.RawMessage(nil), r.Experience...)
	cp.Education = append([]json.RawMessage(nil), r.Education...)
	cp.Projects = append([]json.RawMessage(nil), r.Projects...)
	cp.Certifications = append([]json.RawMessage(nil), r.Certifications...)
	return &cp
}
