// Package cfn models the subset of the CloudFormation template format the
// descriptor emits, and renders it deterministically as JSON or YAML.
package cfn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"sigs.k8s.io/yaml"
)

// FormatVersion is the only template format version CloudFormation accepts.
const FormatVersion = "2010-09-09"

// MaxBodySize is the largest template CloudFormation accepts inline.
// Larger templates must be uploaded to S3 and deployed by URL.
const MaxBodySize = 51200

// Deletion policies.
const (
	PolicyDelete = "Delete"
	PolicyRetain = "Retain"
)

// Template is a CloudFormation template. Map-valued sections are
// rendered with sorted keys, so equal templates render to equal bytes.
type Template struct {
	AWSTemplateFormatVersion string               `json:"AWSTemplateFormatVersion"`
	Description              string               `json:"Description,omitempty"`
	Parameters               map[string]Parameter `json:"Parameters,omitempty"`
	Resources                map[string]*Resource `json:"Resources"`
	Outputs                  map[string]Output    `json:"Outputs,omitempty"`
}

// Parameter is a template input resolved by the engine at deploy time.
type Parameter struct {
	Type        string `json:"Type"`
	Default     string `json:"Default,omitempty"`
	Description string `json:"Description,omitempty"`
}

// Resource is a single declared resource.
type Resource struct {
	Type                string          `json:"Type"`
	Properties          map[string]any  `json:"Properties,omitempty"`
	Metadata            map[string]any  `json:"Metadata,omitempty"`
	CreationPolicy      *CreationPolicy `json:"CreationPolicy,omitempty"`
	DeletionPolicy      string          `json:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string          `json:"UpdateReplacePolicy,omitempty"`
	DependsOn           []string        `json:"DependsOn,omitempty"`
}

// CreationPolicy makes the engine wait for signals before marking the
// resource complete.
type CreationPolicy struct {
	ResourceSignal *ResourceSignal `json:"ResourceSignal,omitempty"`
}

// ResourceSignal is the number of success signals required and the ISO
// 8601 duration the engine waits for them.
type ResourceSignal struct {
	Count   int    `json:"Count"`
	Timeout string `json:"Timeout"`
}

// Output is a value exported by the stack.
type Output struct {
	Description string `json:"Description,omitempty"`
	Value       any    `json:"Value"`
}

// New returns an empty template with the format version set.
func New(description string) *Template {
	return &Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              description,
		Parameters:               map[string]Parameter{},
		Resources:                map[string]*Resource{},
		Outputs:                  map[string]Output{},
	}
}

// AddResource declares a resource under logicalID. Logical IDs must be
// unique within the template.
func (t *Template) AddResource(logicalID string, r *Resource) error {
	if logicalID == "" {
		return fmt.Errorf("cfn: empty logical ID")
	}
	if _, exists := t.Resources[logicalID]; exists {
		return fmt.Errorf("cfn: duplicate logical ID %q", logicalID)
	}
	if _, exists := t.Parameters[logicalID]; exists {
		return fmt.Errorf("cfn: logical ID %q already used by a parameter", logicalID)
	}
	t.Resources[logicalID] = r
	return nil
}

// ResourcesOfType returns the logical IDs of every resource of the given
// type, sorted.
func (t *Template) ResourcesOfType(typ string) []string {
	var ids []string
	for id, r := range t.Resources {
		if r.Type == typ {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// JSON renders the template as indented JSON terminated by a newline.
// HTML escaping is disabled so shell commands stay readable.
func (t *Template) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", " ")
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("cfn: marshal template: %w", err)
	}
	return buf.Bytes(), nil
}

// YAML renders the template as YAML.
func (t *Template) YAML() ([]byte, error) {
	data, err := t.JSON()
	if err != nil {
		return nil, err
	}
	out, err := yaml.JSONToYAML(data)
	if err != nil {
		return nil, fmt.Errorf("cfn: convert template to yaml: %w", err)
	}
	return out, nil
}

// Render renders the template in the named format ("json" or "yaml").
func (t *Template) Render(format string) ([]byte, error) {
	switch format {
	case "", "json":
		return t.JSON()
	case "yaml", "yml":
		return t.YAML()
	default:
		return nil, fmt.Errorf("cfn: unsupported format %q (expected json or yaml)", format)
	}
}
