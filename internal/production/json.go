package production

import (
	"encoding/json"
	"fmt"
)

// unmarshalJSON parses JSON data into the target interface.
func unmarshalJSON(data []byte, target any) error {
	err := json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}
