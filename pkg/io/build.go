package io

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/kgraph"
)

// ErrEmptyDocument is returned when a source yields no document at all
// (empty input or a JSON/YAML null). An empty node map is not an error.
var ErrEmptyDocument = errs.New(errs.ErrCodeEmptyResponse, "empty graph document")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire names (from_tag) rather than Go field names (FromTag).
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Build validates doc and returns a new store holding its nodes.
//
// Nodes are inserted in ascending id order so repeated builds of the same
// document produce identical stores. See [Convert] for the validation rules.
func Build(doc *Document) (*kgraph.Store, error) {
	s := kgraph.New()
	if err := Populate(s, doc); err != nil {
		return nil, err
	}
	return s, nil
}

// Populate replaces the contents of s with the nodes of doc in one atomic
// step. On error s is left unchanged.
func Populate(s *kgraph.Store, doc *Document) error {
	nodes, err := Convert(doc)
	if err != nil {
		return err
	}
	return s.Replace(nodes)
}

// Convert turns doc into store nodes, sorted by id.
//
// A dependency record must name its prerequisite (from_tag). A missing
// to_tag defaults to the owning node; a to_tag naming any other node is
// rejected, as is a record whose id disagrees with its map key. Violations
// are reported as [*kgraph.MalformedInputError]. Duplicate dependency
// records are kept as delivered.
func Convert(doc *Document) ([]kgraph.Node, error) {
	if doc == nil {
		return nil, ErrEmptyDocument
	}

	ids := slices.Sorted(maps.Keys(doc.Nodes))
	nodes := make([]kgraph.Node, 0, len(ids))
	for _, id := range ids {
		n, err := convertNode(id, doc.Nodes[id])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func convertNode(id string, rec NodeRecord) (kgraph.Node, error) {
	if rec.ID != "" && rec.ID != id {
		return kgraph.Node{}, malformed(id, "record id %q does not match key", rec.ID)
	}

	for i, e := range rec.Dependencies {
		if err := checkDependency(id, i, e); err != nil {
			return kgraph.Node{}, err
		}
	}

	n := kgraph.Node{
		ID:           id,
		Title:        rec.Title,
		Summary:      rec.Summary,
		Pointers:     rec.Pointers,
		Dependencies: mapEdges(rec.Dependencies),
		Outlinks:     mapEdges(rec.Outlinks),
	}
	for i, r := range rec.Resources {
		if err := validate.Struct(r); err != nil {
			return kgraph.Node{}, malformed(id, "resource %d: %s", i, describe(err))
		}
		n.Resources = append(n.Resources, resourceFromRecord(r))
	}
	for _, q := range rec.Questions {
		n.Questions = append(n.Questions, kgraph.Question{Text: q.Text})
	}
	return n, nil
}

func checkDependency(owner string, i int, e EdgeRecord) error {
	if e.FromTag == "" && e.ToTag == "" {
		return malformed(owner, "dependency %d has neither from_tag nor to_tag", i)
	}
	if err := validate.Struct(e); err != nil {
		return malformed(owner, "dependency %d: %s", i, describe(err))
	}
	if e.ToTag != "" && e.ToTag != owner {
		return malformed(owner, "dependency %d: to_tag %q does not name this node", i, e.ToTag)
	}
	return nil
}

func malformed(id, format string, args ...any) error {
	return &kgraph.MalformedInputError{NodeID: id, Reason: fmt.Sprintf(format, args...)}
}

// describe formats validator errors into a readable message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		parts = append(parts, describeField(e))
	}
	return strings.Join(parts, "; ")
}

func describeField(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}
