package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func testSchema(t *testing.T) graphql.Schema {
	t.Helper()
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"echo": &graphql.Field{
				Type: graphql.String,
				Args: graphql.FieldConfigArgument{"text": &graphql.ArgumentConfig{Type: graphql.String}},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					prefix, _ := p.Context.Value(ctxKey{}).(string)
					return prefix + p.Args["text"].(string), nil
				},
			},
		},
	})
	s, err := NewSchema(query)
	require.NoError(t, err)
	return s
}

func TestHandlerExecutesWithRequestContext(t *testing.T) {
	h := Handler(testSchema(t), 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query":"query($t:String){ echo(text:$t) }","variables":{"t":"hi"}}`))
	req = req.WithContext(contextWith(req, "> "))
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct{ Echo string } `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "> hi", body.Data.Echo)
}

func TestHandlerRejectsBadBodies(t *testing.T) {
	h := Handler(testSchema(t), 1<<20)
	for _, body := range []string{"{", `{"query":""}`} {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestMutationsAreNotExposed(t *testing.T) {
	h := Handler(testSchema(t), 1<<20)
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"mutation { echo }"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors"`)
}

func contextWith(r *http.Request, prefix string) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, prefix)
}
