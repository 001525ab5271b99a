package scanner

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/schemadrift/schemadrift/internal/models"
)

// httpMethods in document order for stable emission
var httpMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// APIScanner extracts nodes from machine-readable API descriptions.
// YAML is a superset of JSON, so one decoder covers both extensions.
type APIScanner struct {
	logger *logrus.Logger
}

// NewAPIScanner creates an API description scanner
func NewAPIScanner(logger *logrus.Logger) *APIScanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &APIScanner{logger: logger}
}

// Scan parses one API description into service, api, schema and enum nodes
func (s *APIScanner) Scan(path, relPath, fileHash string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	modified := time.Now().UTC()
	if info, err := os.Stat(path); err == nil {
		modified = info.ModTime().UTC()
	}

	result := &Result{}

	serviceID := s.scanInfo(doc, relPath, fileHash, modified, result)
	s.scanSchemas(doc, relPath, fileHash, modified, result)
	s.scanPaths(doc, relPath, fileHash, modified, serviceID, result)

	sortNodes(result.Nodes)
	sortRefs(result.Refs)
	return result, nil
}

// scanInfo emits one service node for the document itself
func (s *APIScanner) scanInfo(doc map[string]any, relPath, fileHash string, modified time.Time, result *Result) string {
	info, _ := doc["info"].(map[string]any)
	title, _ := info["title"].(string)
	if title == "" {
		return ""
	}

	node := &models.Node{
		ID:           NodeID(relPath, title),
		Type:         models.NodeTypeService,
		Name:         title,
		FilePath:     relPath,
		FileHash:     fileHash,
		LastModified: modified,
	}
	if desc, _ := info["description"].(string); desc != "" {
		node.Intent = desc
	}
	result.Nodes = append(result.Nodes, node)
	return node.ID
}

// scanSchemas emits schema/enum nodes from components.schemas or the
// legacy definitions block
func (s *APIScanner) scanSchemas(doc map[string]any, relPath, fileHash string, modified time.Time, result *Result) {
	schemas := lookupMap(doc, "components", "schemas")
	if schemas == nil {
		schemas, _ = doc["definitions"].(map[string]any)
	}
	if schemas == nil {
		return
	}

	for _, name := range sortedKeys(schemas) {
		def, ok := schemas[name].(map[string]any)
		if !ok {
			continue
		}

		node := &models.Node{
			ID:           NodeID(relPath, name),
			Type:         models.NodeTypeSchema,
			Name:         name,
			FilePath:     relPath,
			FileHash:     fileHash,
			LastModified: modified,
		}
		if intent, _ := def["x-intent"].(string); intent != "" {
			node.Intent = intent
		} else if desc, _ := def["description"].(string); desc != "" {
			node.Intent = desc
		}

		if values, ok := def["enum"].([]any); ok {
			node.Type = models.NodeTypeEnum
			rendered := make([]string, 0, len(values))
			for _, v := range values {
				rendered = append(rendered, fmt.Sprintf("%v", v))
			}
			node.Metadata = map[string]any{"values": rendered}
			result.Nodes = append(result.Nodes, node)
			continue
		}

		required := map[string]bool{}
		if reqList, ok := def["required"].([]any); ok {
			for _, r := range reqList {
				if name, ok := r.(string); ok {
					required[name] = true
				}
			}
		}

		if props, ok := def["properties"].(map[string]any); ok {
			for _, propName := range sortedKeys(props) {
				propDef, _ := props[propName].(map[string]any)
				rendered, refName := renderSchemaType(propDef)
				prop := models.Property{
					Name:     propName,
					Type:     rendered,
					Required: required[propName],
				}
				if desc, _ := propDef["description"].(string); desc != "" {
					prop.Description = desc
				}
				node.Properties = append(node.Properties, prop)
				if refName != "" {
					result.Refs = append(result.Refs, TypeRef{
						SourceID:   node.ID,
						TargetName: refName,
						Type:       models.EdgeTypeUses,
						Confidence: 1.0,
					})
				}
			}
		}
		result.Nodes = append(result.Nodes, node)
	}
}

// scanPaths emits one api node per path+method
func (s *APIScanner) scanPaths(doc map[string]any, relPath, fileHash string, modified time.Time, serviceID string, result *Result) {
	paths, _ := doc["paths"].(map[string]any)
	if paths == nil {
		return
	}

	for _, path := range sortedKeys(paths) {
		ops, ok := paths[path].(map[string]any)
		if !ok {
			continue
		}
		for _, method := range httpMethods {
			op, ok := ops[method].(map[string]any)
			if !ok {
				continue
			}

			name := fmt.Sprintf("%s %s", strings.ToUpper(method), path)
			node := &models.Node{
				ID:           NodeID(relPath, name),
				Type:         models.NodeTypeAPI,
				Name:         name,
				FilePath:     relPath,
				FileHash:     fileHash,
				LastModified: modified,
			}
			if intent, _ := op["x-intent"].(string); intent != "" {
				node.Intent = intent
			} else if summary, _ := op["summary"].(string); summary != "" {
				node.Intent = summary
			}

			if params, ok := op["parameters"].([]any); ok {
				for _, p := range params {
					param, ok := p.(map[string]any)
					if !ok {
						continue
					}
					paramName, _ := param["name"].(string)
					if paramName == "" {
						continue
					}
					rendered := "string"
					if schema, ok := param["schema"].(map[string]any); ok {
						rendered, _ = renderSchemaType(schema)
					} else if t, _ := param["type"].(string); t != "" {
						rendered = t
					}
					req, _ := param["required"].(bool)
					node.Properties = append(node.Properties, models.Property{
						Name:     paramName,
						Type:     rendered,
						Required: req,
					})
				}
			}

			for _, refName := range collectRefs(op) {
				result.Refs = append(result.Refs, TypeRef{
					SourceID:   node.ID,
					TargetName: refName,
					Type:       models.EdgeTypeUses,
					Confidence: 1.0,
				})
			}

			result.Nodes = append(result.Nodes, node)

			if serviceID != "" {
				result.Edges = append(result.Edges, &models.Edge{
					ID:         EdgeID(serviceID, node.ID, models.EdgeTypeDefines),
					Source:     serviceID,
					Target:     node.ID,
					Type:       models.EdgeTypeDefines,
					Confidence: 1.0,
				})
			}
		}
	}
}

// renderSchemaType renders a schema fragment as an opaque type string
// and returns the referenced component name when the fragment is a $ref
func renderSchemaType(def map[string]any) (rendered string, refName string) {
	if def == nil {
		return "any", ""
	}
	if ref, _ := def["$ref"].(string); ref != "" {
		name := refLeaf(ref)
		return name, name
	}
	t, _ := def["type"].(string)
	switch t {
	case "array":
		items, _ := def["items"].(map[string]any)
		inner, innerRef := renderSchemaType(items)
		return inner + "[]", innerRef
	case "":
		return "any", ""
	default:
		if format, _ := def["format"].(string); format != "" {
			return fmt.Sprintf("%s(%s)", t, format), ""
		}
		return t, ""
	}
}

// collectRefs walks an operation fragment and gathers every $ref leaf name
func collectRefs(v any) []string {
	seen := make(map[string]bool)
	var walk func(any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			if ref, _ := val["$ref"].(string); ref != "" {
				seen[refLeaf(ref)] = true
			}
			for _, key := range sortedKeys(val) {
				walk(val[key])
			}
		case []any:
			for _, item := range val {
				walk(item)
			}
		}
	}
	walk(v)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func refLeaf(ref string) string {
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

func lookupMap(doc map[string]any, keys ...string) map[string]any {
	current := doc
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
