package etl

import (
	"fmt"

	"github.com/dkoehler14/traindata/pkg/models"
)

// Validator checks transformed documents against the mapping schema
// before they are loaded.
type Validator struct {
	Config *models.MappingSchema
}

func NewValidator(config *models.MappingSchema) *Validator {
	return &Validator{Config: config}
}

// ValidateRecord requires the ID field and every field marked required to
// be present and non-nil.
func (v *Validator) ValidateRecord(doc Record) error {
	idField := v.Config.IDStrategy.MongoField
	if val, ok := doc[idField]; !ok || val == nil {
		return fmt.Errorf("missing required ID field: %s", idField)
	}

	for _, cfg := range v.Config.Fields {
		if !cfg.Required {
			continue
		}
		if val, ok := doc[cfg.MongoField]; !ok || val == nil {
			return fmt.Errorf("missing required field: %s", cfg.MongoField)
		}
	}
	return nil
}
