// Package utils holds the type-conversion helpers shared by both
// migration directions.
package utils

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/dkoehler14/traindata/pkg/models"
)

// ConvertToMongoType converts a SQL value into its document form.
func ConvertToMongoType(val interface{}, cfg models.FieldConfig) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	switch cfg.Type {
	case "datetime":
		return ConvertDateTime(val, cfg.Format)
	case "int":
		return ConvertToInt(val)
	case "string", "enum":
		return fmt.Sprintf("%v", val), nil
	default:
		return val, nil
	}
}

// ConvertToSQLType converts a document value back into its SQL form.
func ConvertToSQLType(val interface{}, cfg models.FieldConfig) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	switch cfg.Type {
	case "datetime":
		return ConvertDateTime(val, cfg.Format)
	case "int":
		return ConvertToInt(val)
	case "string", "enum":
		return fmt.Sprintf("%v", val), nil
	default:
		return val, nil
	}
}

// ConvertDateTime normalizes the various datetime representations the two
// drivers produce into time.Time.
func ConvertDateTime(val interface{}, format string) (interface{}, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case primitive.DateTime:
		return v.Time(), nil
	case string:
		formats := []string{
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02 15:04:05",
			"2006-01-02",
		}
		for _, f := range formats {
			if t, err := time.Parse(f, v); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unable to parse datetime: %s", v)
	case []byte:
		return ConvertDateTime(string(v), format)
	default:
		return val, nil
	}
}

// ConvertToInt coerces the numeric shapes both drivers emit into int.
func ConvertToInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	case []byte:
		return strconv.Atoi(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}
