// Package testkit — scenario.go
//
// A scenario is a JSON file describing one API flow: the users it needs, the
// requests to fire in order and what each response must contain.
//
//	testdata/
//	  bid_and_confirm.json       ← scenario
//	  create_order_req.json      ← request body referenced by a step
//	  register_taken_res.json    ← exact expected response body
//
// Values captured from one response are available to later steps as
// {{name}}, and every fixture user exposes {{<username>.id}} and
// {{<username>.email}}.
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ─── Schema ───────────────────────────────────────────────────────────────────

// Scenario describes one API flow loaded from a JSON file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	Users        []UserFixture     `json:"users"`
	Steps        []Step            `json:"steps"`
	ExpectedMail []MailExpectation `json:"expectedMail"`

	// resolved at load time
	dir string
}

// UserFixture is a user inserted before the first step. Its password is
// Password.
type UserFixture struct {
	Username string `json:"username"`
	Buyer    bool   `json:"buyer"`
	Supplier bool   `json:"supplier"`
	Staff    bool   `json:"staff"`
	Address  string `json:"address"`
}

// Step is one request and its assertions.
type Step struct {
	Name string `json:"name"`

	// As names the fixture user whose access token is sent. Empty sends no
	// token unless Headers carries one.
	As              string            `json:"as"`
	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	RequestFileName string            `json:"requestFileName"` // relative to the scenario file
	Body            json.RawMessage   `json:"body"`            // inline body, used when no file is named
	Headers         map[string]string `json:"headers"`

	ExpectedCode       int `json:"expectedCode"`
	ExpectedStatusCode int `json:"expectedStatusCode"` // alias of expectedCode

	// ResponseFileName holds the exact expected body. Expect only has to be
	// contained in the body: objects may carry extra keys, arrays must match
	// in length.
	ResponseFileName string          `json:"responseFileName"`
	Expect           json.RawMessage `json:"expect"`
	Lengths          map[string]int  `json:"lengths"` // path → array length
	Absent           []string        `json:"absent"`  // paths that must not exist

	// Capture stores response values for later steps: variable → path.
	Capture map[string]string `json:"capture"`
}

// MailExpectation asserts on the mail queued during the whole scenario. To
// is a fixture username. Count 0 means at least one.
type MailExpectation struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// ─── Loading ──────────────────────────────────────────────────────────────────

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	users := map[string]bool{}
	for i, u := range s.Users {
		if u.Username == "" {
			return fmt.Errorf("users[%d].username is required", i)
		}
		users[u.Username] = true
	}

	for i := range s.Steps {
		st := &s.Steps[i]
		if st.RequestURL == "" {
			return fmt.Errorf("steps[%d].requestUrl is required", i)
		}
		if st.RequestMethod == "" {
			st.RequestMethod = "GET"
		}
		if st.ExpectedCode == 0 {
			st.ExpectedCode = st.ExpectedStatusCode
		}
		if st.ExpectedCode == 0 {
			return fmt.Errorf("steps[%d].expectedCode is required", i)
		}
		if st.As != "" && !users[st.As] {
			return fmt.Errorf("steps[%d].as: unknown user %q", i, st.As)
		}
		if st.Name == "" {
			st.Name = fmt.Sprintf("%s %s", st.RequestMethod, st.RequestURL)
		}
	}

	for i, m := range s.ExpectedMail {
		if !users[m.To] {
			return fmt.Errorf("expectedMail[%d].to: unknown user %q", i, m.To)
		}
	}
	return nil
}

// path resolves a file name relative to the scenario's directory.
func (s *Scenario) path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}
