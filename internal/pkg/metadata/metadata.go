// Package metadata builds the ERC-721 metadata document published for each diploma.
package metadata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Trait labels, in the order they appear in every document
const (
	TraitStudentID = "Student ID"
	TraitName      = "Name"
	TraitProgram   = "Program"
	TraitBirthDate = "Birth Date"
	TraitGrade     = "Grade"
)

// Student carries the fields described by the document
type Student struct {
	ID        string
	Name      string
	Course    string
	BirthDate string
	Grade     string
}

// Attribute is one trait of the document
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Document is the published metadata
type Document struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Image        string      `json:"image"`
	ExternalURL  string      `json:"external_url"`
	AnimationURL string      `json:"animation_url,omitempty"`
	Attributes   []Attribute `json:"attributes"`
}

// Compose assembles the document. image is the display asset (artifact or preview),
// external is always the raw artifact and animation is set only for document artifacts.
func Compose(s Student, image, external, animation string) Document {
	return Document{
		Name:         fmt.Sprintf("Diploma - %s", s.Name),
		Description:  fmt.Sprintf("%s diploma issued to %s (student %s).", s.Course, s.Name, s.ID),
		Image:        image,
		ExternalURL:  external,
		AnimationURL: animation,
		Attributes: []Attribute{
			{TraitType: TraitStudentID, Value: s.ID},
			{TraitType: TraitName, Value: s.Name},
			{TraitType: TraitProgram, Value: s.Course},
			{TraitType: TraitBirthDate, Value: s.BirthDate},
			{TraitType: TraitGrade, Value: s.Grade},
		},
	}
}

// DisplayLink prefers the animation asset, then the image
func (d Document) DisplayLink() string {
	if d.AnimationURL != "" {
		return d.AnimationURL
	}
	return d.Image
}

// Parse decodes a fetched metadata document
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("metadata: malformed document: %w", err)
	}
	return doc, nil
}

const schemaURL = "https://diplomaregistry.local/schemas/erc721-metadata.schema.json"

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "description", "image", "external_url", "attributes"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "image": {"type": "string", "minLength": 1},
    "external_url": {"type": "string", "minLength": 1},
    "animation_url": {"type": "string", "minLength": 1},
    "attributes": {
      "type": "array",
      "minItems": 5,
      "maxItems": 5,
      "items": {
        "type": "object",
        "required": ["trait_type", "value"],
        "properties": {
          "trait_type": {"type": "string", "minLength": 1},
          "value": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var documentSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("metadata schema load failed: %v", err))
	}
	return c.MustCompile(schemaURL)
}

// Validate checks the document against the metadata schema before it is published
func Validate(d Document) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("metadata: encode: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("metadata: decode: %w", err)
	}
	if err := documentSchema.Validate(v); err != nil {
		return fmt.Errorf("metadata: document does not match schema: %w", err)
	}
	return nil
}
