package graph

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// convert re-decodes from into a value of type To using a JSON round trip.
// It backs the typed node data views.
func convert[From, To any](from From) (To, error) {
	var zero To

	data, err := json.Marshal(from)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal: %w", err)
	}

	var to To
	if err := json.Unmarshal(data, &to); err != nil {
		return zero, fmt.Errorf("failed to unmarshal: %w", err)
	}

	return to, nil
}
