// Package mongo reads graph documents from a MongoDB collection holding one
// document per node, keyed by node id:
//
//	{"_id": "matrices", "title": "Matrices",
//	 "dependencies": [{"from_tag": "vectors"}]}
package mongo

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	errs "github.com/matzehuels/knowmap/pkg/errors"
	"github.com/matzehuels/knowmap/pkg/io"
	"github.com/matzehuels/knowmap/pkg/source"
)

// Defaults for [Open].
const (
	DefaultDatabase   = "knowmap"
	DefaultCollection = "nodes"
	connectTimeout    = 10 * time.Second
)

// Source loads node records from a collection.
type Source struct {
	client *driver.Client // nil when the collection was supplied by the caller
	coll   *driver.Collection
}

// Open connects to uri and verifies the connection. Empty database or
// collection names select the defaults.
func Open(ctx context.Context, uri, database, collection string) (*Source, error) {
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(connectTimeout)
	client, err := driver.Connect(ctx, opts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "mongo uri")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "connect mongo")
	}
	return &Source{client: client, coll: client.Database(database).Collection(collection)}, nil
}

// New wraps an existing collection. Close does not disconnect its client.
func New(coll *driver.Collection) *Source {
	return &Source{coll: coll}
}

// Name returns "mongo".
func (s *Source) Name() string { return "mongo" }

// Load returns every record when focal is empty. Otherwise it loads focal
// and, level by level, every record it transitively depends on. Dependencies
// missing from the collection are left out; resolving them later reports a
// lookup error.
func (s *Source) Load(ctx context.Context, focal string) (*io.Document, error) {
	doc := &io.Document{KeyNode: focal, Nodes: map[string]io.NodeRecord{}}
	if focal == "" {
		return doc, s.find(ctx, bson.M{}, doc)
	}

	seen := map[string]bool{focal: true}
	frontier := []string{focal}
	for len(frontier) > 0 {
		if err := s.find(ctx, bson.M{"_id": bson.M{"$in": frontier}}, doc); err != nil {
			return nil, err
		}
		if _, ok := doc.Nodes[focal]; !ok {
			return nil, errs.New(errs.ErrCodeNotFound, "node %q not in collection %s", focal, s.coll.Name())
		}

		var next []string
		for _, id := range frontier {
			rec, ok := doc.Nodes[id]
			if !ok {
				continue
			}
			for _, d := range rec.Dependencies {
				if d.FromTag != "" && !seen[d.FromTag] {
					seen[d.FromTag] = true
					next = append(next, d.FromTag)
				}
			}
		}
		slices.Sort(next)
		frontier = next
	}
	return doc, nil
}

func (s *Source) find(ctx context.Context, filter bson.M, doc *io.Document) error {
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "query %s", s.coll.Name())
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var rec io.NodeRecord
		if err := cur.Decode(&rec); err != nil {
			return errs.Wrap(errs.ErrCodeMalformedInput, err, "decode record")
		}
		if rec.ID == "" {
			return errs.New(errs.ErrCodeMalformedInput, "record without _id in %s", s.coll.Name())
		}
		doc.Nodes[rec.ID] = rec
	}
	if err := cur.Err(); err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "iterate %s", s.coll.Name())
	}
	return nil
}

// Save upserts every record of doc, keyed by its map key.
func (s *Source) Save(ctx context.Context, doc *io.Document) (int, error) {
	ids := make([]string, 0, len(doc.Nodes))
	for id := range doc.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	upsert := options.Replace().SetUpsert(true)
	for i, id := range ids {
		rec := doc.Nodes[id]
		rec.ID = id
		if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, rec, upsert); err != nil {
			return i, fmt.Errorf("save %q: %w", id, err)
		}
	}
	return len(ids), nil
}

// Close disconnects the client opened by [Open].
func (s *Source) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

var _ source.Source = (*Source)(nil)
