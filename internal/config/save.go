package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveSetting sets a dotted key (e.g. "watch.debounce") in the settings
// file to a scalar value. Comments and formatting elsewhere in the file are
// preserved by editing the yaml.Node tree.
func SaveSetting(configPath, key, value string) error {
	if key == "" {
		return fmt.Errorf("setting key is required")
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // G304: settings path is user-controlled
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("config root must be a mapping")
	}

	if err := setPath(doc.Content[0], strings.Split(key, "."), value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("closing yaml encoder: %w", err)
	}

	return writeAtomic(configPath, buf.Bytes())
}

// setPath walks (and creates) nested mappings down to the last key.
func setPath(node *yaml.Node, parts []string, value string) error {
	for i, part := range parts {
		last := i == len(parts)-1

		var child *yaml.Node
		for j := 0; j+1 < len(node.Content); j += 2 {
			if node.Content[j].Value == part {
				child = node.Content[j+1]
				break
			}
		}

		if last {
			scalar := &yaml.Node{Kind: yaml.ScalarNode, Value: value}
			if child != nil {
				scalar.HeadComment = child.HeadComment
				scalar.LineComment = child.LineComment
				scalar.FootComment = child.FootComment
				*child = *scalar
			} else {
				node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, scalar)
			}
			return nil
		}

		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		}
		if child.Kind != yaml.MappingNode {
			if child.Kind == yaml.ScalarNode && child.ShortTag() == "!!null" {
				*child = yaml.Node{Kind: yaml.MappingNode}
			} else {
				return fmt.Errorf("%s is not a mapping", strings.Join(parts[:i+1], "."))
			}
		}
		node = child
	}
	return nil
}

// writeAtomic writes to a temp file in the same directory, then renames.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".c360cfg.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
