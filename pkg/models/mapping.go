package models

// MappingSchema describes how one entity maps between its SQL table and
// its Mongo collection. Mapping files (JSON or YAML) unmarshal into this.
type MappingSchema struct {
	Entity          string                    `json:"entity" yaml:"entity"`
	SQLTable        string                    `json:"sqlTable" yaml:"sqlTable"`
	MongoCollection string                    `json:"mongoCollection" yaml:"mongoCollection"`
	IDStrategy      IDStrategy                `json:"idStrategy" yaml:"idStrategy"`
	Fields          map[string]FieldConfig    `json:"fields" yaml:"fields"`
	Relations       map[string]RelationConfig `json:"relations" yaml:"relations"`
}

// IDStrategy names the primary-key field on each side of the mapping.
type IDStrategy struct {
	SQLField   string `json:"sqlField" yaml:"sqlField"`
	MongoField string `json:"mongoField" yaml:"mongoField"`
	Type       string `json:"type" yaml:"type"`
}

// FieldConfig maps one field between the two stores. DefaultFrom names
// another target field whose value backfills this one when the source
// record lacks it; re-running the migration leaves already-backfilled
// records untouched.
type FieldConfig struct {
	SQLColumn   string `json:"sql" yaml:"sql"`
	MongoField  string `json:"mongo" yaml:"mongo"`
	Type        string `json:"type" yaml:"type"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
	DefaultFrom string `json:"defaultFrom,omitempty" yaml:"defaultFrom,omitempty"`
}

// RelationConfig describes how related rows embed into (or reference out
// of) the document form of the entity.
type RelationConfig struct {
	Type          string   `json:"type" yaml:"type"`
	SQLTable      string   `json:"sqlTable,omitempty" yaml:"sqlTable,omitempty"`
	SQLJoinTable  string   `json:"sqlJoinTable,omitempty" yaml:"sqlJoinTable,omitempty"`
	SQLForeignKey string   `json:"sqlForeignKey" yaml:"sqlForeignKey"`
	MongoField    string   `json:"mongoField" yaml:"mongoField"`
	Embedding     string   `json:"embedding" yaml:"embedding"`
	Fields        []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	ReferenceKey  string   `json:"referenceKey,omitempty" yaml:"referenceKey,omitempty"`
}
