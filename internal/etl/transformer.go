package etl

import (
	"fmt"

	"github.com/dkoehler14/traindata/pkg/models"
	"github.com/dkoehler14/traindata/pkg/utils"
)

// Transformer converts records between their SQL row and Mongo document
// shapes according to one entity's mapping schema.
type Transformer struct {
	Config *models.MappingSchema
}

func NewTransformer(config *models.MappingSchema) *Transformer {
	return &Transformer{Config: config}
}

// TransformSQLToMongo maps one SQL row into its document form.
func (t *Transformer) TransformSQLToMongo(row Record) (Record, error) {
	doc := make(Record)

	if idVal, ok := row[t.Config.IDStrategy.SQLField]; ok {
		doc[t.Config.IDStrategy.MongoField] = idVal
	}

	for _, cfg := range t.Config.Fields {
		val, exists := row[cfg.SQLColumn]
		if !exists {
			continue
		}
		converted, err := utils.ConvertToMongoType(val, cfg)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", cfg.SQLColumn, err)
		}
		doc[cfg.MongoField] = converted
	}

	for relKey, relCfg := range t.Config.Relations {
		if relData, exists := row[relKey]; exists {
			doc[relCfg.MongoField] = t.transformRelation(relData, relCfg)
		}
	}

	t.applyFieldDefaults(doc)
	return doc, nil
}

// TransformMongoToSQL maps one document into its SQL row form.
func (t *Transformer) TransformMongoToSQL(doc Record) (Record, error) {
	row := make(Record)

	if idVal, ok := doc[t.Config.IDStrategy.MongoField]; ok {
		row[t.Config.IDStrategy.SQLField] = idVal
	}

	for _, cfg := range t.Config.Fields {
		val, exists := doc[cfg.MongoField]
		if !exists {
			continue
		}
		converted, err := utils.ConvertToSQLType(val, cfg)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", cfg.MongoField, err)
		}
		row[cfg.SQLColumn] = converted
	}
	return row, nil
}

// applyFieldDefaults backfills fields declared with defaultFrom: when the
// target field is absent and the named sibling field is present, the
// sibling's value is copied. Records already carrying the field are left
// alone, so re-running a migration is idempotent.
func (t *Transformer) applyFieldDefaults(doc Record) {
	for _, cfg := range t.Config.Fields {
		if cfg.DefaultFrom == "" {
			continue
		}
		if existing, ok := doc[cfg.MongoField]; ok && existing != nil {
			continue
		}
		if src, ok := doc[cfg.DefaultFrom]; ok && src != nil {
			doc[cfg.MongoField] = src
		}
	}
}

func (t *Transformer) transformRelation(relData interface{}, cfg models.RelationConfig) interface{} {
	if cfg.Embedding != "reference" {
		return relData
	}
	items, ok := relData.([]Record)
	if !ok {
		return relData
	}
	refs := make([]interface{}, 0, len(items))
	for _, item := range items {
		if refVal, exists := item[cfg.ReferenceKey]; exists {
			refs = append(refs, Record{cfg.ReferenceKey: refVal})
		}
	}
	return refs
}

// ExtractRelationData pulls embedded child documents out of a Mongo doc
// so they can be written to their own SQL tables, stamping the parent's
// foreign key onto each child row.
func (t *Transformer) ExtractRelationData(doc Record, parentID interface{}) map[string][]Record {
	relations := make(map[string][]Record)

	for relKey, relCfg := range t.Config.Relations {
		val, exists := doc[relCfg.MongoField]
		if !exists || val == nil {
			continue
		}
		items, ok := val.([]interface{})
		if !ok {
			continue
		}

		children := make([]Record, 0, len(items))
		for _, item := range items {
			itemMap, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			child := make(Record, len(itemMap)+1)
			for k, v := range itemMap {
				child[k] = v
			}
			child[relCfg.SQLForeignKey] = parentID
			children = append(children, child)
		}
		relations[relKey] = children
	}
	return relations
}
