package http

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const predictSchemaURL = "schema://predict-request.json"

// The envelope only; element count and types are checked by ml.ParseFeatures
// so that the two failure reasons stay distinguishable.
const predictSchemaText = `{
	"type": "object",
	"required": ["features"],
	"properties": {
		"features": {"type": "array"}
	}
}`

var predictSchema = compilePredictSchema()

func compilePredictSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(predictSchemaText))
	if err != nil {
		panic(fmt.Sprintf("predict schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(predictSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("predict schema: %v", err))
	}
	return c.MustCompile(predictSchemaURL)
}

// decodePredictRequest parses the body and returns the raw features array.
func decodePredictRequest(body io.Reader) ([]any, error) {
	doc, err := jsonschema.UnmarshalJSON(body)
	if err != nil {
		return nil, &requestError{msg: "request body is not valid JSON", err: err}
	}
	if err := predictSchema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, &requestError{msg: `request body must be {"features": [c, l, gamma, h, u, phi, beta]}`, err: err}
		}
		return nil, &requestError{msg: "request body could not be validated", err: err}
	}
	features, _ := doc.(map[string]any)["features"].([]any)
	return features, nil
}

type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Unwrap() error { return e.err }
