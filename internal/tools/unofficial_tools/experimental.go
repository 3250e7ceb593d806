package unofficial_tools

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const experimentalSchemaURL = "ticktick-mcp://unofficial/experimental_api_call.json"

const experimentalSchema = `{
  "type": "object",
  "required": ["endpoint"],
  "properties": {
    "endpoint": {"type": "string", "pattern": "^/api/"},
    "method": {"type": "string", "enum": ["GET", "POST", "PUT", "DELETE"]},
    "data": {"type": ["object", "array"]},
    "params": {
      "type": "object",
      "additionalProperties": {
        "anyOf": [
          {"type": ["string", "number", "boolean"]},
          {"type": "array", "items": {"type": ["string", "number", "boolean"]}}
        ]
      }
    }
  }
}`

var experimentalCallSchema = mustCompileExperimental()

func mustCompileExperimental() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(experimentalSchemaURL, strings.NewReader(experimentalSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(experimentalSchemaURL)
}

// experimentalCall is a validated raw request.
type experimentalCall struct {
	Method   string
	Endpoint string
	Data     any
	Params   url.Values
}

// invalidCallError carries the schema violations of a rejected call.
type invalidCallError struct {
	details []string
}

func (e *invalidCallError) Error() string {
	return "invalid experimental_api_call arguments: " + strings.Join(e.details, "; ")
}

// parseExperimentalCall validates raw tool arguments against the call
// schema. The method is upper-cased before validation and defaults to GET.
func parseExperimentalCall(args map[string]any) (*experimentalCall, error) {
	normalized := make(map[string]any, len(args))
	for k, v := range args {
		if v == nil {
			continue
		}
		normalized[k] = v
	}
	if m, ok := normalized["method"].(string); ok {
		normalized["method"] = strings.ToUpper(m)
	}

	// Round trip through JSON so the validator only sees JSON types.
	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, errors.Wrap(err, "encode arguments")
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, errors.Wrap(err, "decode arguments")
	}

	if err := experimentalCallSchema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, &invalidCallError{details: violationDetails(verr)}
		}
		return nil, errors.Wrap(err, "validate arguments")
	}

	obj := instance.(map[string]any)
	call := &experimentalCall{
		Method:   http.MethodGet,
		Endpoint: obj["endpoint"].(string),
		Data:     obj["data"],
	}
	if m, ok := obj["method"].(string); ok {
		call.Method = m
	}
	if params, ok := obj["params"].(map[string]any); ok {
		call.Params = queryValues(params)
	}
	return call, nil
}

func violationDetails(verr *jsonschema.ValidationError) []string {
	var details []string
	for _, e := range verr.BasicOutput().Errors {
		if e.Error == "" || strings.HasPrefix(e.Error, "doesn't validate with") {
			continue
		}
		loc := e.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		details = append(details, loc+": "+e.Error)
	}
	if len(details) == 0 {
		details = []string{verr.Message}
	}
	return details
}

func queryValues(params map[string]any) url.Values {
	q := url.Values{}
	for k, v := range params {
		switch vv := v.(type) {
		case []any:
			for _, item := range vv {
				q.Add(k, scalarString(item))
			}
		default:
			q.Set(k, scalarString(vv))
		}
	}
	return q
}

func scalarString(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	}
	return fmt.Sprint(v)
}
