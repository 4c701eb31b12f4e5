package plan

import (
	_ "embed"
	"encoding/json"
)

//go:embed schema.json
var schemaJSON []byte

// Schema returns the JSON Schema of a plan document. Planners embed it in
// prompts so generated plans decode with Parse.
func Schema() json.RawMessage {
	return append(json.RawMessage{}, schemaJSON...)
}
