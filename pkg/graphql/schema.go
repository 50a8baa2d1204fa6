// Package graphql serves a graphql-go schema over HTTP POST.
package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/bidmarket/pkg/logger"
	"github.com/shashiranjanraj/bidmarket/pkg/response"
)

// NewSchema builds a query-only schema. Mutations are not exposed.
func NewSchema(query *graphql.Object) (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// Request is the standard GraphQL-over-HTTP body.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

// Execute runs req against schema. The request context reaches resolvers
// through p.Context.
func Execute(r *http.Request, schema graphql.Schema, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
}

// Handler decodes a Request, executes it and writes the result. Resolver
// errors are reported inside the result with status 200.
func Handler(schema graphql.Schema, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid GraphQL request body")
			return
		}
		if req.Query == "" {
			response.Error(w, http.StatusBadRequest, "query is required")
			return
		}

		res := Execute(r, schema, req)
		if res.HasErrors() {
			logger.WithCtx(r.Context()).Debug("graphql: resolver errors", "errors", res.Errors)
		}
		response.JSON(w, http.StatusOK, res)
	}
}
