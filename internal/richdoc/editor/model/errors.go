package model

import (
	"errors"
	"fmt"
)

var (
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrCrossParentReplace = errors.New("replace range crosses node boundaries")
)

// SchemaViolation ошибка построения узла или метки с нарушением схемы.
type SchemaViolation struct {
	Type   string
	Attr   string
	Reason string
}

func (e *SchemaViolation) Error() string {
	if e.Attr != "" {
		return fmt.Sprintf("schema violation: %s.%s: %s", e.Type, e.Attr, e.Reason)
	}
	return fmt.Sprintf("schema violation: %s: %s", e.Type, e.Reason)
}

func IsSchemaViolation(err error) bool {
	var sv *SchemaViolation
	return errors.As(err, &sv)
}
