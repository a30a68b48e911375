package store

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// sourceFilesKey is the catalog key listing an entity's input files.
const sourceFilesKey = "sourceFiles"

// Entity is a named category of source data. It is either a FlatEntity
// or a GroupedEntity; the variant is fixed when the catalog is decoded.
type Entity interface {
	EntityName() string
	// LeafFiles returns every source file of the entity in catalog order.
	LeafFiles() []string
	isEntity()
}

// FlatEntity lists its source files directly.
type FlatEntity struct {
	Name        string
	SourceFiles []string
}

func (e FlatEntity) EntityName() string  { return e.Name }
func (e FlatEntity) LeafFiles() []string { return e.SourceFiles }
func (FlatEntity) isEntity()             {}

// GroupedEntity holds sub-entities that each carry their own file list,
// such as the kpis grouping.
type GroupedEntity struct {
	Name    string
	Members []FlatEntity
}

func (e GroupedEntity) EntityName() string { return e.Name }

func (e GroupedEntity) LeafFiles() []string {
	var files []string
	for _, m := range e.Members {
		files = append(files, m.SourceFiles...)
	}
	return files
}

func (GroupedEntity) isEntity() {}

// Catalog is the ordered entity catalog of the store.
type Catalog struct {
	Entities []Entity
}

// LeafCount returns the number of source files across all entities.
func (c Catalog) LeafCount() int {
	n := 0
	for _, e := range c.Entities {
		n += len(e.LeafFiles())
	}
	return n
}

// UnmarshalYAML decodes the catalog mapping while keeping document order.
// A sequence value yields a GroupedEntity, anything else a FlatEntity.
func (c *Catalog) UnmarshalYAML(node *yaml.Node) error {
	node = resolve(node)
	if isNull(node) {
		c.Entities = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: entities must be a mapping of entity name to definition", node.Line)
	}

	entities := make([]Entity, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		value := resolve(node.Content[i+1])

		if value.Kind == yaml.SequenceNode {
			entities = append(entities, GroupedEntity{Name: name, Members: members(name, value)})
			continue
		}
		entities = append(entities, FlatEntity{Name: name, SourceFiles: sourceFiles(value)})
	}
	c.Entities = entities
	return nil
}

// members decodes the sub-entities of a grouped entity. Items that are not
// mappings carry no files and are skipped.
func members(parent string, seq *yaml.Node) []FlatEntity {
	var out []FlatEntity
	for i, item := range seq.Content {
		item = resolve(item)
		if item.Kind != yaml.MappingNode {
			continue
		}
		name := fmt.Sprintf("%s[%d]", parent, i)
		if v := mappingValue(item, "name"); v != nil && v.Kind == yaml.ScalarNode {
			name = v.Value
		}
		out = append(out, FlatEntity{Name: name, SourceFiles: sourceFiles(item)})
	}
	return out
}

// sourceFiles extracts the sourceFiles list of an entity mapping. A single
// scalar is accepted as a one-element list.
func sourceFiles(entity *yaml.Node) []string {
	if entity.Kind != yaml.MappingNode {
		return nil
	}
	v := mappingValue(entity, sourceFilesKey)
	if v == nil || isNull(v) {
		return nil
	}

	switch v.Kind {
	case yaml.ScalarNode:
		if v.Value == "" {
			return nil
		}
		return []string{v.Value}
	case yaml.SequenceNode:
		files := make([]string, 0, len(v.Content))
		for _, f := range v.Content {
			f = resolve(f)
			if f.Kind == yaml.ScalarNode && !isNull(f) && f.Value != "" {
				files = append(files, f.Value)
			}
		}
		return files
	default:
		return nil
	}
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1])
		}
	}
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}
