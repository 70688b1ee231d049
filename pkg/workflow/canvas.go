package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidCanvas = errors.New("invalid canvas")

const canvasSchema = `{
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "data": {
            "type": "object",
            "properties": {
              "label": {"type": "string"},
              "config": {"type": "object"}
            }
          }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["source", "target"],
        "properties": {
          "id": {"type": "string"},
          "source": {"type": "string", "minLength": 1},
          "target": {"type": "string", "minLength": 1},
          "sourceHandle": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var canvasSchemaLoader = gojsonschema.NewStringLoader(canvasSchema)

type canvasDocument struct {
	Nodes []canvasNode `json:"nodes"`
	Edges []canvasEdge `json:"edges"`
}

type canvasNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Label  string         `json:"label"`
		Config map[string]any `json:"config"`
	} `json:"data"`
}

type canvasEdge struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	SourceHandle *string `json:"sourceHandle"`
}

// ValidateCanvas checks the shape of an editor document.
func ValidateCanvas(raw []byte) error {
	result, err := gojsonschema.Validate(canvasSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCanvas, err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidCanvas, strings.Join(problems, "; "))
	}

	return nil
}

// ParseCanvas validates and converts an editor document into a Graph.
func ParseCanvas(raw []byte) (*models.Graph, error) {
	if err := ValidateCanvas(raw); err != nil {
		return nil, err
	}

	var doc canvasDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCanvas, err)
	}

	graph := &models.Graph{
		Nodes: make([]*models.Node, 0, len(doc.Nodes)),
		Edges: make([]*models.Edge, 0, len(doc.Edges)),
	}

	for _, n := range doc.Nodes {
		config := n.Data.Config
		if config == nil {
			config = map[string]any{}
		}

		graph.Nodes = append(graph.Nodes, &models.Node{
			ID:       n.ID,
			Type:     n.Type,
			Category: models.CategoryOfType(n.Type),
			Label:    n.Data.Label,
			Config:   config,
		})
	}

	for _, e := range doc.Edges {
		edge := &models.Edge{ID: e.ID, Source: e.Source, Target: e.Target}
		if e.SourceHandle != nil {
			edge.SourceHandle = *e.SourceHandle
		}

		graph.Edges = append(graph.Edges, edge)
	}

	return graph, nil
}
