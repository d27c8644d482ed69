package io

import (
	"github.com/matzehuels/knowmap/pkg/kgraph"
)

// Document is the serialized form of a knowledge graph: the content
// service's node map, optionally scoped to a key node.
//
// The same shape is read from JSON, YAML and TOML files, from content-service
// responses and, record by record, from MongoDB.
type Document struct {
	KeyNode string                `json:"key_node,omitempty" yaml:"key_node,omitempty" toml:"key_node,omitempty"`
	Nodes   map[string]NodeRecord `json:"nodes" yaml:"nodes" toml:"nodes"`
}

// NodeRecord is one node as delivered by a source. Every field is optional;
// missing fields become empty values. The map key in [Document.Nodes] is the
// node id; ID, when present, must agree with it.
type NodeRecord struct {
	ID           string           `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty" bson:"_id,omitempty"`
	Title        string           `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty" bson:"title,omitempty"`
	Summary      string           `json:"summary,omitempty" yaml:"summary,omitempty" toml:"summary,omitempty" bson:"summary,omitempty"`
	Pointers     string           `json:"pointers,omitempty" yaml:"pointers,omitempty" toml:"pointers,omitempty" bson:"pointers,omitempty"`
	Dependencies []EdgeRecord     `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty" bson:"dependencies,omitempty"`
	Outlinks     []EdgeRecord     `json:"outlinks,omitempty" yaml:"outlinks,omitempty" toml:"outlinks,omitempty" bson:"outlinks,omitempty"`
	Resources    []ResourceRecord `json:"resources,omitempty" yaml:"resources,omitempty" toml:"resources,omitempty" bson:"resources,omitempty"`
	Questions    []QuestionRecord `json:"questions,omitempty" yaml:"questions,omitempty" toml:"questions,omitempty" bson:"questions,omitempty"`
}

// EdgeRecord is a dependency edge. FromTag names the prerequisite, ToTag the
// node that requires it.
type EdgeRecord struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty" bson:"id,omitempty"`
	FromTag string `json:"from_tag" yaml:"from_tag" toml:"from_tag" bson:"from_tag" validate:"required"`
	ToTag   string `json:"to_tag,omitempty" yaml:"to_tag,omitempty" toml:"to_tag,omitempty" bson:"to_tag,omitempty"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty" bson:"reason,omitempty"`
	Visible bool   `json:"visible,omitempty" yaml:"visible,omitempty" toml:"visible,omitempty" bson:"visible,omitempty"`
}

// ResourceRecord is a learning resource. Free is 0 or 1 as sent by the
// content service.
type ResourceRecord struct {
	Title        string   `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty" bson:"title,omitempty"`
	Location     string   `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty" bson:"location,omitempty"`
	URL          string   `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty" bson:"url,omitempty"`
	ResourceType string   `json:"resource_type,omitempty" yaml:"resource_type,omitempty" toml:"resource_type,omitempty" bson:"resource_type,omitempty"`
	Free         int      `json:"free,omitempty" yaml:"free,omitempty" toml:"free,omitempty" bson:"free,omitempty" validate:"min=0,max=1"`
	Edition      string   `json:"edition,omitempty" yaml:"edition,omitempty" toml:"edition,omitempty" bson:"edition,omitempty"`
	Authors      []string `json:"authors,omitempty" yaml:"authors,omitempty" toml:"authors,omitempty" bson:"authors,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty" bson:"dependencies,omitempty"`
	Mark         []string `json:"mark,omitempty" yaml:"mark,omitempty" toml:"mark,omitempty" bson:"mark,omitempty"`
	Extra        []string `json:"extra,omitempty" yaml:"extra,omitempty" toml:"extra,omitempty" bson:"extra,omitempty"`
	Note         []string `json:"note,omitempty" yaml:"note,omitempty" toml:"note,omitempty" bson:"note,omitempty"`
}

// QuestionRecord is a comprehension question.
type QuestionRecord struct {
	Text string `json:"text" yaml:"text" toml:"text" bson:"text"`
}

func edgeFromRecord(r EdgeRecord) kgraph.Edge {
	return kgraph.Edge{ID: r.ID, From: r.FromTag, To: r.ToTag, Reason: r.Reason, Visible: r.Visible}
}

func edgeToRecord(e kgraph.Edge) EdgeRecord {
	r := EdgeRecord{FromTag: e.From, ToTag: e.To, Reason: e.Reason, Visible: e.Visible}
	if e.ID != e.From+e.To {
		r.ID = e.ID
	}
	return r
}

func resourceFromRecord(r ResourceRecord) kgraph.Resource {
	return kgraph.Resource{
		Title:        r.Title,
		Location:     r.Location,
		URL:          r.URL,
		ResourceType: r.ResourceType,
		Free:         r.Free != 0,
		Edition:      r.Edition,
		Authors:      r.Authors,
		Dependencies: r.Dependencies,
		Mark:         r.Mark,
		Extra:        r.Extra,
		Note:         r.Note,
	}
}

func resourceToRecord(r kgraph.Resource) ResourceRecord {
	out := ResourceRecord{
		Title:        r.Title,
		Location:     r.Location,
		URL:          r.URL,
		ResourceType: r.ResourceType,
		Edition:      r.Edition,
		Authors:      r.Authors,
		Dependencies: r.Dependencies,
		Mark:         r.Mark,
		Extra:        r.Extra,
		Note:         r.Note,
	}
	if r.Free {
		out.Free = 1
	}
	return out
}

func mapEdges(in []EdgeRecord) []kgraph.Edge {
	if len(in) == 0 {
		return nil
	}
	out := make([]kgraph.Edge, len(in))
	for i, r := range in {
		out[i] = edgeFromRecord(r)
	}
	return out
}

func edgeRecords(in []kgraph.Edge) []EdgeRecord {
	if len(in) == 0 {
		return nil
	}
	out := make([]EdgeRecord, len(in))
	for i, e := range in {
		out[i] = edgeToRecord(e)
	}
	return out
}
