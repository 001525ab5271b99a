package scanner

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/schemadrift/schemadrift/internal/models"
)

// Declaration detection patterns for typed schema sources
var (
	intentAnnotationRe = regexp.MustCompile(`@intent\(\s*["']([^"']*)["']\s*\)`)
	intentCommentRe    = regexp.MustCompile(`^\s*//\s*intent:\s*(.+)$`)
	interfaceRe        = regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?interface\s+(\w+)(?:\s+extends\s+([\w\s,]+?))?\s*\{`)
	classRe            = regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?(?:abstract\s+)?class\s+(\w+)(?:\s+extends\s+(\w+))?(?:\s+implements\s+([\w\s,]+?))?\s*\{`)
	enumRe             = regexp.MustCompile(`^\s*(?:export\s+)?(?:declare\s+)?(?:const\s+)?enum\s+(\w+)\s*\{`)
	enumMemberRe       = regexp.MustCompile(`^\s*(\w+)\s*(?:=\s*["']([^"']*)["'])?\s*,?\s*$`)
	propertyRe         = regexp.MustCompile(`^\s*(?:readonly\s+)?(\w+)(\?)?\s*:\s*([^;]+?);?\s*(?://\s*(.*))?$`)
	methodRe           = regexp.MustCompile(`^\s*(\w+)\s*\(([^)]*)\)\s*:\s*([^;]+?);?\s*$`)
	typeIdentRe        = regexp.MustCompile(`\b([A-Z]\w*)\b`)
)

// builtinTypes are never emitted as references
var builtinTypes = map[string]bool{
	"Array": true, "Date": true, "Error": true, "Map": true, "Set": true,
	"Promise": true, "Record": true, "Partial": true, "Required": true,
	"Readonly": true, "Pick": true, "Omit": true, "Buffer": true,
}

// LanguageScanner extracts interface, class and enum declarations from
// statically-typed schema sources using line-level pattern matching
type LanguageScanner struct {
	logger *logrus.Logger
}

// NewLanguageScanner creates a language scanner
func NewLanguageScanner(logger *logrus.Logger) *LanguageScanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &LanguageScanner{logger: logger}
}

// Scan parses one source file into schema nodes and reference edges
func (s *LanguageScanner) Scan(path, relPath, fileHash string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	result := &Result{}
	now := time.Now().UTC()
	if info, err := f.Stat(); err == nil {
		now = info.ModTime().UTC()
	}

	var (
		pendingIntent string
		current       *models.Node
		currentKind   declKind
		depth         int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := intentAnnotationRe.FindStringSubmatch(line); m != nil {
			pendingIntent = strings.TrimSpace(m[1])
			continue
		}
		if m := intentCommentRe.FindStringSubmatch(line); m != nil {
			pendingIntent = strings.TrimSpace(m[1])
			continue
		}

		if current == nil {
			node, kind := s.matchDeclaration(line, relPath, fileHash, now, result)
			if node != nil {
				node.Intent = pendingIntent
				pendingIntent = ""
				current = node
				currentKind = kind
				depth = strings.Count(line, "{") - strings.Count(line, "}")
				if depth <= 0 {
					// single-line declaration
					result.Nodes = append(result.Nodes, node)
					current = nil
				}
				continue
			}
			if strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), "//") {
				pendingIntent = ""
			}
			continue
		}

		// inside a declaration body
		open := strings.Count(line, "{")
		closed := strings.Count(line, "}")
		if depth == 1 {
			s.matchMember(line, current, currentKind, result)
		}
		depth += open - closed
		if depth <= 0 {
			result.Nodes = append(result.Nodes, current)
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if current != nil {
		result.Nodes = append(result.Nodes, current)
	}

	sortNodes(result.Nodes)
	sortRefs(result.Refs)
	return result, nil
}

type declKind int

const (
	declInterface declKind = iota
	declService
	declClass
	declEnum
)

func (s *LanguageScanner) matchDeclaration(line, relPath, fileHash string, now time.Time, result *Result) (*models.Node, declKind) {
	if m := enumRe.FindStringSubmatch(line); m != nil {
		node := &models.Node{
			ID:           NodeID(relPath, m[1]),
			Type:         models.NodeTypeEnum,
			Name:         m[1],
			FilePath:     relPath,
			FileHash:     fileHash,
			Metadata:     map[string]any{"values": []string{}},
			LastModified: now,
		}
		return node, declEnum
	}

	if m := interfaceRe.FindStringSubmatch(line); m != nil {
		nodeType := models.NodeTypeSchema
		kind := declInterface
		if strings.HasSuffix(m[1], "Service") {
			nodeType = models.NodeTypeService
			kind = declService
		}
		node := &models.Node{
			ID:           NodeID(relPath, m[1]),
			Type:         nodeType,
			Name:         m[1],
			FilePath:     relPath,
			FileHash:     fileHash,
			LastModified: now,
		}
		for _, base := range splitNameList(m[2]) {
			result.Refs = append(result.Refs, TypeRef{
				SourceID:   node.ID,
				TargetName: base,
				Type:       models.EdgeTypeExtends,
				Confidence: 1.0,
			})
		}
		return node, kind
	}

	if m := classRe.FindStringSubmatch(line); m != nil {
		node := &models.Node{
			ID:           NodeID(relPath, m[1]),
			Type:         models.NodeTypeDTO,
			Name:         m[1],
			FilePath:     relPath,
			FileHash:     fileHash,
			LastModified: now,
		}
		if m[2] != "" {
			result.Refs = append(result.Refs, TypeRef{
				SourceID:   node.ID,
				TargetName: m[2],
				Type:       models.EdgeTypeExtends,
				Confidence: 1.0,
			})
		}
		for _, iface := range splitNameList(m[3]) {
			result.Refs = append(result.Refs, TypeRef{
				SourceID:   node.ID,
				TargetName: iface,
				Type:       models.EdgeTypeImplements,
				Confidence: 1.0,
			})
		}
		return node, declClass
	}

	return nil, declInterface
}

func (s *LanguageScanner) matchMember(line string, node *models.Node, kind declKind, result *Result) {
	switch kind {
	case declEnum:
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "}") {
			return
		}
		if m := enumMemberRe.FindStringSubmatch(line); m != nil {
			value := m[2]
			if value == "" {
				value = m[1]
			}
			values, _ := node.Metadata["values"].([]string)
			node.Metadata["values"] = append(values, value)
		}

	case declService:
		if m := methodRe.FindStringSubmatch(line); m != nil {
			rendered := fmt.Sprintf("(%s) => %s", strings.TrimSpace(m[2]), strings.TrimSpace(m[3]))
			node.Properties = append(node.Properties, models.Property{
				Name:     m[1],
				Type:     rendered,
				Required: true,
			})
			for _, name := range extractTypeNames(m[2] + " " + m[3]) {
				result.Refs = append(result.Refs, TypeRef{
					SourceID:   node.ID,
					TargetName: name,
					Type:       models.EdgeTypeCalls,
					Confidence: 0.8,
				})
			}
			return
		}
		s.matchProperty(line, node, result)

	default:
		s.matchProperty(line, node, result)
	}
}

func (s *LanguageScanner) matchProperty(line string, node *models.Node, result *Result) {
	m := propertyRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	rendered := strings.TrimSpace(m[3])
	node.Properties = append(node.Properties, models.Property{
		Name:        m[1],
		Type:        rendered,
		Required:    m[2] == "",
		Description: strings.TrimSpace(m[4]),
	})
	for _, name := range extractTypeNames(rendered) {
		result.Refs = append(result.Refs, TypeRef{
			SourceID:   node.ID,
			TargetName: name,
			Type:       models.EdgeTypeUses,
			Confidence: 0.9,
		})
	}
}

// extractTypeNames pulls referenced declared names out of a rendered
// type string, skipping builtins
func extractTypeNames(rendered string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range typeIdentRe.FindAllStringSubmatch(rendered, -1) {
		name := m[1]
		if builtinTypes[name] || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func splitNameList(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}
