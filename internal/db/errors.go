package db

import (
	"errors"
	"strings"

	"github.com/suPer8Hu/agent-chat/internal/common"
	"gorm.io/gorm"
)

// IsDuplicate reports a unique constraint violation. gorm translates most
// dialects to ErrDuplicatedKey; the string checks cover drivers that don't.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// Classify converts a gorm error into the common error taxonomy.
// notFound is the message used when the record does not exist.
func Classify(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.E(common.KindNotFound, notFound, err)
	case IsDuplicate(err):
		return common.E(common.KindDuplicateKey, "already exists", err)
	default:
		return common.StoreFailure(err)
	}
}
