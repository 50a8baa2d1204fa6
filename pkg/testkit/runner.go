package testkit

// runner.go — executes scenario files against an http.Handler.
//
// Usage:
//
//	func TestAPIScenarios(t *testing.T) {
//	    testkit.RunDir(t, "testdata", func(t *testing.T) testkit.Env {
//	        db := testkit.NewDB(t)
//	        return testkit.Env{Handler: buildAPI(t, db), DB: db}
//	    })
//	}

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
)

// Env is the application a scenario runs against. The builder passed to Run
// and RunDir returns a fresh Env for every scenario.
type Env struct {
	Handler http.Handler
	DB      *gorm.DB

	// Mail lists the messages queued so far. Required when a scenario has
	// expectedMail entries.
	Mail func() []SentMail
}

// SentMail is one queued message as seen by the mail assertions.
type SentMail struct {
	To      string
	Subject string
}

// ─── Entry points ─────────────────────────────────────────────────────────────

// Run executes the scenario file at path as a subtest.
func Run(t *testing.T, path string, build func(t *testing.T) Env) {
	t.Helper()
	s, err := LoadScenario(path)
	require.NoError(t, err)
	t.Run(s.Name, func(t *testing.T) { runScenario(t, s, build(t)) })
}

// RunDir executes every scenario file in dir. Request and response bodies
// belong in subdirectories so they are not mistaken for scenarios.
func RunDir(t *testing.T, dir string, build func(t *testing.T) Env) {
	t.Helper()
	scenarios, err := LoadAllFromDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, scenarios, "testkit: no scenarios in %s", dir)

	for _, s := range scenarios {
		s := s
		t.Run(s.Name, func(t *testing.T) { runScenario(t, s, build(t)) })
	}
}

// LoadAllFromDir loads the *.json files directly inside dir, sorted by name.
func LoadAllFromDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("testkit: glob %q: %w", dir, err)
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ─── Execution ────────────────────────────────────────────────────────────────

type run struct {
	s      *Scenario
	env    Env
	vars   map[string]string
	users  map[string]models.User
	tokens map[string]string
}

func runScenario(t *testing.T, s *Scenario, env Env) {
	t.Helper()
	require.NotNil(t, env.Handler, "testkit: Env.Handler is required")

	r := &run{
		s:      s,
		env:    env,
		vars:   map[string]string{},
		users:  map[string]models.User{},
		tokens: map[string]string{},
	}

	if len(s.Users) > 0 {
		require.NotNil(t, env.DB, "testkit: Env.DB is required for fixture users")
	}
	for _, f := range s.Users {
		u := models.User{Username: f.Username, IsBuyer: f.Buyer, IsSupplier: f.Supplier, IsStaff: f.Staff}
		if f.Address != "" {
			u.Address = Ptr(f.Address)
		}
		u = CreateUser(t, env.DB, u)
		r.users[f.Username] = u
		r.tokens[f.Username] = Token(t, u)
		r.vars[f.Username+".id"] = strconv.FormatUint(uint64(u.ID), 10)
		r.vars[f.Username+".email"] = u.Email
	}

	// The first failing step ends the scenario.
	for i := range s.Steps {
		st := s.Steps[i]
		if !t.Run(fmt.Sprintf("%02d %s", i+1, st.Name), func(t *testing.T) { r.step(t, st) }) {
			return
		}
	}

	if len(s.ExpectedMail) > 0 {
		require.NotNil(t, env.Mail, "testkit: Env.Mail is required for expectedMail")
		r.assertMail(t)
	}
}

func (r *run) step(t *testing.T, st Step) {
	t.Helper()

	body := []byte(st.Body)
	if st.RequestFileName != "" {
		raw, err := os.ReadFile(r.s.path(st.RequestFileName))
		require.NoError(t, err, "testkit: read request body")
		body = raw
	}

	req := httptest.NewRequest(st.RequestMethod, r.expand(t, st.RequestURL), bytes.NewReader(r.expandBytes(t, body)))
	req.Header.Set("Content-Type", "application/json")
	if st.As != "" {
		req.Header.Set("Authorization", "Bearer "+r.tokens[st.As])
	}
	for k, v := range st.Headers {
		req.Header.Set(k, r.expand(t, v))
	}

	rec := httptest.NewRecorder()
	r.env.Handler.ServeHTTP(rec, req)
	got := rec.Body.Bytes()

	AssertStatusCode(t, st.ExpectedCode, rec.Code, got)

	if st.ResponseFileName != "" {
		want, err := os.ReadFile(r.s.path(st.ResponseFileName))
		require.NoError(t, err, "testkit: read response body")
		AssertJSONBody(t, r.expandBytes(t, want), got)
	}
	if len(st.Expect) > 0 {
		AssertJSONContains(t, r.expandBytes(t, st.Expect), got)
	}

	if len(st.Lengths) == 0 && len(st.Absent) == 0 && len(st.Capture) == 0 {
		return
	}
	var doc any
	require.NoError(t, json.Unmarshal(got, &doc), "body: %s", got)

	for path, n := range st.Lengths {
		v, ok := lookup(doc, path)
		require.True(t, ok, "%s: missing in %s", path, got)
		arr, ok := v.([]any)
		require.True(t, ok, "%s: not an array: %#v", path, v)
		require.Len(t, arr, n, path)
	}
	for _, path := range st.Absent {
		_, ok := lookup(doc, path)
		require.False(t, ok, "%s: expected absent in %s", path, got)
	}
	for name, path := range st.Capture {
		v, ok := lookup(doc, path)
		require.True(t, ok, "capture %s: %s missing in %s", name, path, got)
		r.vars[name] = scalar(v)
	}
}

func (r *run) assertMail(t *testing.T) {
	t.Helper()
	sent := r.env.Mail()

	for _, m := range r.s.ExpectedMail {
		to := r.users[m.To].Email
		subject := r.expand(t, m.Subject)

		n := 0
		for _, s := range sent {
			if s.To == to && (subject == "" || s.Subject == subject) {
				n++
			}
		}
		if m.Count == 0 {
			require.Positive(t, n, "no mail to %s with subject %q; sent: %+v", m.To, subject, sent)
			continue
		}
		require.Equal(t, m.Count, n, "mail to %s with subject %q; sent: %+v", m.To, subject, sent)
	}
}

// ─── Variables ────────────────────────────────────────────────────────────────

var placeholder = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

func (r *run) expand(t *testing.T, s string) string {
	t.Helper()
	var missing []string
	out := placeholder.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := r.vars[name]
		if !ok {
			missing = append(missing, name)
		}
		return v
	})
	require.Empty(t, missing, "testkit: undefined variables in %q", s)
	return out
}

func (r *run) expandBytes(t *testing.T, b []byte) []byte {
	t.Helper()
	if len(b) == 0 {
		return nil
	}
	return []byte(r.expand(t, string(b)))
}

// lookup walks a decoded JSON document along a dotted path. Numeric
// segments index arrays.
func lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// scalar renders a JSON value the way it is written back into a template.
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return "null"
	default:
		raw, _ := json.Marshal(x)
		return string(raw)
	}
}
