package domain

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"
)

// MaxCustomQuestions bounds the size of a CustomQuestionSet.
const MaxCustomQuestions = 5

// Position is the declared target job category of a user.
type Position int

const (
	PositionOther Position = iota
	PositionFrontendDeveloper
	PositionBackendDeveloper
	PositionFullstackDeveloper
	PositionMobileDeveloper
	PositionDataAnalyst
	PositionDevOpsEngineer
	PositionProductManager
	PositionDesigner
	PositionMarketer
)

var positionKeys = map[Position]string{
	PositionOther:              "other",
	PositionFrontendDeveloper:  "frontend_developer",
	PositionBackendDeveloper:   "backend_developer",
	PositionFullstackDeveloper: "fullstack_developer",
	PositionMobileDeveloper:    "mobile_developer",
	PositionDataAnalyst:        "data_analyst",
	PositionDevOpsEngineer:     "devops_engineer",
	PositionProductManager:     "product_manager",
	PositionDesigner:           "designer",
	PositionMarketer:           "marketer",
}

// ParsePosition maps a profile key to a Position. Unknown keys map to PositionOther.
func ParsePosition(key string) Position {
	key = strings.ToLower(strings.TrimSpace(key))
	for p, k := range positionKeys {
		if k == key {
			return p
		}
	}
	return PositionOther
}

// String returns the profile key for p.
func (p Position) String() string {
	if k, ok := positionKeys[p]; ok {
		return k
	}
	return positionKeys[PositionOther]
}

// ProfileData is the onboarding questionnaire a user fills in.
// Values are kept as raw strings so that options unknown to this build survive a
// round trip, and keys without a typed field are carried in Extra.
type ProfileData struct {
	Status       string   `json:"status,omitempty" yaml:"status,omitempty"`
	Experience   string   `json:"experience,omitempty" yaml:"experience,omitempty"`
	Position     string   `json:"position,omitempty" yaml:"position,omitempty"`
	TechStack    []string `json:"techStack,omitempty" yaml:"techStack,omitempty"`
	CompanySize  string   `json:"companySize,omitempty" yaml:"companySize,omitempty"`
	WorkType     string   `json:"workType,omitempty" yaml:"workType,omitempty"`
	Priorities   []string `json:"priorities,omitempty" yaml:"priorities,omitempty"`
	Timeline     string   `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	MainInterest string   `json:"mainInterest,omitempty" yaml:"mainInterest,omitempty"`

	Extra map[string]any `json:"-" yaml:",inline"`
}

// profileFields has the typed fields of ProfileData without its JSON methods.
type profileFields ProfileData

var typedProfileKeys = []string{
	"status", "experience", "position", "techStack", "companySize",
	"workType", "priorities", "timeline", "mainInterest",
}

// MarshalJSON writes the typed fields merged over Extra.
func (d ProfileData) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(profileFields(d))
	if err != nil || len(d.Extra) == 0 {
		return typed, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(d.Extra)+len(fields))
	for k, v := range d.Extra {
		if !slices.Contains(typedProfileKeys, k) {
			out[k] = v
		}
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes into the existing value, so keys absent from b keep
// their current values. Unknown keys are added to Extra.
func (d *ProfileData) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, (*profileFields)(d)); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range typedProfileKeys {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil
	}
	extra := make(map[string]any, len(d.Extra)+len(all))
	for k, v := range d.Extra {
		extra[k] = v
	}
	for k, v := range all {
		extra[k] = v
	}
	d.Extra = extra
	return nil
}

// Clone returns a copy that shares no slices or maps with d.
func (d ProfileData) Clone() ProfileData {
	c := d
	c.TechStack = slices.Clone(d.TechStack)
	c.Priorities = slices.Clone(d.Priorities)
	c.Extra = maps.Clone(d.Extra)
	return c
}

// PositionCategory returns the parsed position of the profile.
func (d ProfileData) PositionCategory() Position {
	return ParsePosition(d.Position)
}

// IsZero reports whether no field of the profile is set.
func (d ProfileData) IsZero() bool {
	return d.Status == "" && d.Experience == "" && d.Position == "" &&
		len(d.TechStack) == 0 && d.CompanySize == "" && d.WorkType == "" &&
		len(d.Priorities) == 0 && d.Timeline == "" && d.MainInterest == "" &&
		len(d.Extra) == 0
}

// Profile is the singleton per-user preference record.
type Profile struct {
	UserID  string      `json:"user_id"`
	Data    ProfileData `json:"profile_data"`
	SavedAt time.Time   `json:"saved_at"`
}

// QuestionSource records where a question set came from.
type QuestionSource string

const (
	QuestionSourceAI       QuestionSource = "ai"
	QuestionSourceFallback QuestionSource = "fallback"
)

// CustomQuestionSet is the cached list of suggested conversation starters for a user.
type CustomQuestionSet struct {
	UserID    string         `json:"user_id"`
	Questions []string       `json:"questions"`
	Source    QuestionSource `json:"source"`
	SavedAt   time.Time      `json:"saved_at"`
}
