package learning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// StepID identifies a step within its path. Generated paths carry either
// numbers or strings, so the id keeps its textual form and encodes back to a
// JSON number whenever that form is a canonical integer.
type StepID string

// String returns the id as stored in progress sets.
func (id StepID) String() string {
	return string(id)
}

func (id StepID) isInt() bool {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

// MarshalJSON encodes integer ids as numbers and everything else as strings.
func (id StepID) MarshalJSON() ([]byte, error) {
	if id.isInt() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON number or string.
func (id *StepID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StepID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("step id must be a number or string: %w", err)
	}
	*id = StepID(n.String())
	return nil
}

// ResourceID addresses one resource of a step by its position.
type ResourceID struct {
	StepID StepID
	Index  int
}

// String renders the id as "<stepId>-<index>".
func (r ResourceID) String() string {
	return r.StepID.String() + "-" + strconv.Itoa(r.Index)
}

// ParseResourceID splits "<stepId>-<index>" on its last dash, so step ids
// that contain dashes survive the round trip.
func ParseResourceID(s string) (ResourceID, error) {
	i := strings.LastIndex(s, "-")
	if i <= 0 || i == len(s)-1 {
		return ResourceID{}, fmt.Errorf("resource id %q: want <stepId>-<index>", s)
	}
	idx, err := strconv.Atoi(s[i+1:])
	if err != nil || idx < 0 {
		return ResourceID{}, fmt.Errorf("resource id %q: bad index", s)
	}
	return ResourceID{StepID: StepID(s[:i]), Index: idx}, nil
}

// MainPathID is the progress key of the main path.
const MainPathID = "main"

// NewPathID generates a named path id.
func NewPathID() string {
	return "pth_" + uuid.New().String()
}
