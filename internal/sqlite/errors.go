package sqlite

import (
	"fmt"
	"strings"

	"github.com/rpggio/statuspage/internal/docstore"
)

func isCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}

// mapWriteError translates constraint failures into docstore errors.
func mapWriteError(err error, collection, id string) error {
	if isCheckViolation(err) {
		return fmt.Errorf("%w: %s/%s", docstore.ErrInvalidDocument, collection, id)
	}
	return fmt.Errorf("failed to write %s/%s: %w", collection, id, err)
}
