package testkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode fails the test when the response status differs. The body
// is included in the message.
func AssertStatusCode(t testing.TB, expected, actual int, body []byte) {
	t.Helper()
	require.Equal(t, expected, actual, "unexpected status; body: %s", body)
}

// AssertJSONBody checks that two JSON documents are equal, ignoring key order
// and whitespace.
func AssertJSONBody(t testing.TB, expected, actual []byte) {
	t.Helper()
	assert.JSONEq(t, string(expected), string(actual))
}

// AssertJSONContains checks that every value in expected appears in actual
// at the same path. Objects in actual may carry extra keys. Arrays must have
// the same length. A string in expected matches a number in actual when it
// spells that number.
func AssertJSONContains(t testing.TB, expected, actual []byte) {
	t.Helper()

	var want, got any
	require.NoError(t, json.Unmarshal(expected, &want), "expected JSON: %s", expected)
	require.NoError(t, json.Unmarshal(actual, &got), "actual JSON: %s", actual)

	if diffs := DiffJSON("", want, got); len(diffs) > 0 {
		assert.Fail(t, "JSON body mismatch", "%v\nbody: %s", diffs, actual)
	}
}

// DiffJSON lists the paths where got does not contain want.
func DiffJSON(path string, want, got any) []string {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: want object, got %#v", keyPath(path), got)}
		}
		var diffs []string
		for k, wv := range w {
			gv, ok := g[k]
			if !ok {
				diffs = append(diffs, fmt.Sprintf("%s: missing", keyPath(join(path, k))))
				continue
			}
			diffs = append(diffs, DiffJSON(join(path, k), wv, gv)...)
		}
		return diffs

	case []any:
		g, ok := got.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: want array, got %#v", keyPath(path), got)}
		}
		if len(w) != len(g) {
			return []string{fmt.Sprintf("%s: want %d elements, got %d", keyPath(path), len(w), len(g))}
		}
		var diffs []string
		for i := range w {
			diffs = append(diffs, DiffJSON(join(path, strconv.Itoa(i)), w[i], g[i])...)
		}
		return diffs

	case string:
		if n, ok := got.(float64); ok && w == strconv.FormatFloat(n, 'f', -1, 64) {
			return nil
		}
	}

	if !assert.ObjectsAreEqual(want, got) {
		return []string{fmt.Sprintf("%s: want %#v, got %#v", keyPath(path), want, got)}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func keyPath(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
