package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dkoehler14/traindata/pkg/models"
)

// LoadMapping reads and parses an entity mapping file. The decoder is
// chosen by extension: .json, or .yaml/.yml.
func LoadMapping(filePath string) (*models.MappingSchema, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file '%s': %w", filePath, err)
	}

	var schema models.MappingSchema
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json":
		err = json.Unmarshal(data, &schema)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &schema)
	default:
		return nil, fmt.Errorf("unsupported mapping file extension '%s' (want .json, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file '%s': %w", filePath, err)
	}

	if schema.Entity == "" {
		return nil, fmt.Errorf("mapping file '%s' has no entity name", filePath)
	}
	return &schema, nil
}
