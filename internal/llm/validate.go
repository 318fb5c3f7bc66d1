package llm

import (
	"encoding/json"

	"github.com/abhisek/campus/internal/validate"
)

// validateResponse checks raw against schema, reporting failures as
// *ErrInvalidResponse so the retry decorator treats them uniformly.
func validateResponse(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}
	err := validate.JSON(&validate.Schema{Name: "llm-" + schema.Name, Definition: schema.Definition}, raw)
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: err}
	}
	return nil
}
