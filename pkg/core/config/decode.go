package config

import (
	"encoding/json"
	"fmt"

	"reserve_monitor/pkg/core/extract"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// decodeJSON decodes hand-edited JSON bundles. Each attempt starts from an
// empty value.
// Order of attempts:
//
//	strict encoding/json → repaired JSON (trailing commas, single quotes,
//	unquoted keys, comments) → Hjson
func decodeJSON(data []byte) (extract.Config, error) {
	var strict extract.Config
	strictErr := json.Unmarshal(data, &strict)
	if strictErr == nil {
		return strict, nil
	}

	if repaired, err := jsonrepair.RepairJSON(string(data)); err == nil {
		var cfg extract.Config
		if err := json.Unmarshal([]byte(repaired), &cfg); err == nil {
			return cfg, nil
		}
	}

	var cfg extract.Config
	if err := hjson.Unmarshal(data, &cfg); err == nil {
		return cfg, nil
	}
	return extract.Config{}, fmt.Errorf("decode json: %w", strictErr)
}
