package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		key  string
		want Position
	}{
		{"frontend_developer", PositionFrontendDeveloper},
		{" Backend_Developer ", PositionBackendDeveloper},
		{"data_analyst", PositionDataAnalyst},
		{"marketer", PositionMarketer},
		{"other", PositionOther},
		{"astronaut", PositionOther},
		{"", PositionOther},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := ParsePosition(tt.key); got != tt.want {
				t.Fatalf("ParsePosition(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestPositionStringRoundTrip(t *testing.T) {
	for p := range positionKeys {
		if got := ParsePosition(p.String()); got != p {
			t.Errorf("ParsePosition(%q) = %v, want %v", p.String(), got, p)
		}
	}
	if got := Position(99).String(); got != "other" {
		t.Errorf("Position(99).String() = %q, want other", got)
	}
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"user", "assistant", "system"} {
		r, err := ParseRole(s)
		if err != nil {
			t.Fatalf("ParseRole(%q) error = %v", s, err)
		}
		if string(r) != s {
			t.Fatalf("ParseRole(%q) = %q", s, r)
		}
	}
	if _, err := ParseRole("tool"); err == nil {
		t.Fatal("ParseRole(tool) expected error")
	}
}

func TestDefaultSessionTitle(t *testing.T) {
	got := DefaultSessionTitle(time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC))
	if got != "대화 2025. 3. 7." {
		t.Fatalf("DefaultSessionTitle() = %q", got)
	}
}

func TestProfileDataIsZero(t *testing.T) {
	if !(ProfileData{}).IsZero() {
		t.Fatal("empty profile should be zero")
	}
	if (ProfileData{TechStack: []string{"Go"}}).IsZero() {
		t.Fatal("profile with tech stack should not be zero")
	}
	if (ProfileData{MainInterest: "salary"}).IsZero() {
		t.Fatal("profile with interest should not be zero")
	}
}

func TestProfileDataKeepsUnknownKeys(t *testing.T) {
	in := []byte(`{"position":"frontend_developer","name":"kim","salaryExpectation":5000,"links":{"github":"kim"}}`)

	var d ProfileData
	if err := json.Unmarshal(in, &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if d.Position != "frontend_developer" {
		t.Fatalf("Position = %q", d.Position)
	}
	if d.Extra["name"] != "kim" || d.Extra["salaryExpectation"] != float64(5000) {
		t.Fatalf("Extra = %#v", d.Extra)
	}
	if (ProfileData{Extra: map[string]any{"name": "kim"}}).IsZero() {
		t.Fatal("profile with extra keys should not be zero")
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var want, got map[string]any
	_ = json.Unmarshal(in, &want)
	_ = json.Unmarshal(out, &got)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileDataUnmarshalMergesIntoExisting(t *testing.T) {
	d := ProfileData{Position: "designer", Extra: map[string]any{"name": "kim"}}
	if err := json.Unmarshal([]byte(`{"timeline":"3months","city":"Seoul"}`), &d); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := ProfileData{
		Position: "designer",
		Timeline: "3months",
		Extra:    map[string]any{"name": "kim", "city": "Seoul"},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestProfileDataTypedKeysWinOverExtra(t *testing.T) {
	d := ProfileData{Position: "marketer", Extra: map[string]any{"position": "stale", "name": "kim"}}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"name":"kim","position":"marketer"}` {
		t.Fatalf("Marshal() = %s", out)
	}
}

func TestProfileDataYAMLKeepsUnknownKeys(t *testing.T) {
	var d ProfileData
	if err := yaml.Unmarshal([]byte("position: data_analyst\nname: kim\n"), &d); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if d.Position != "data_analyst" || d.Extra["name"] != "kim" {
		t.Fatalf("decoded = %#v", d)
	}
}

func TestProfileDataClone(t *testing.T) {
	d := ProfileData{TechStack: []string{"Go"}, Extra: map[string]any{"name": "kim"}}
	c := d.Clone()
	c.TechStack[0] = "Rust"
	c.Extra["name"] = "lee"
	if d.TechStack[0] != "Go" || d.Extra["name"] != "kim" {
		t.Fatalf("Clone() shares state: %#v", d)
	}
}
