package index

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// DefaultCollection is the Qdrant collection holding journal vectors.
const DefaultCollection = "journals"

// QdrantConfig locates a Qdrant collection.
type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
	Dimensions int
	// Reset drops any existing collection so row ids start from zero.
	Reset bool
	// Alias is pointed at Collection by Publish.
	Alias string
	// DropOnClose deletes the collection when the index is closed.
	DropOnClose bool
}

// Qdrant is an Index backed by a Qdrant collection using dot-product distance.
// Point ids are row positions.
type Qdrant struct {
	client     *qdrant.Client
	collection string
	alias      string
	drop       bool
	dims       int

	mu    sync.Mutex
	count int
}

// OpenQdrant connects to Qdrant and ensures the collection exists.
func OpenQdrant(ctx context.Context, cfg QdrantConfig) (*Qdrant, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant collection %s: dimensions must be positive", cfg.Collection)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Host,
		Port: cfg.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant: %w", err)
	}

	q := &Qdrant{
		client:     client,
		collection: cfg.Collection,
		alias:      cfg.Alias,
		drop:       cfg.DropOnClose,
		dims:       cfg.Dimensions,
	}
	if err := q.ensureCollection(ctx, cfg.Reset); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func (q *Qdrant) ensureCollection(ctx context.Context, reset bool) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if exists && reset {
		if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
			return fmt.Errorf("dropping collection: %w", err)
		}
		exists = false
	}
	if !exists {
		err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: q.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(q.dims),
				Distance: qdrant.Distance_Dot,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection: %w", err)
		}
		return nil
	}

	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("counting points: %w", err)
	}
	q.count = int(n)
	return nil
}

// Add upserts vectors with ids continuing from Count.
func (q *Qdrant) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	points := make([]*qdrant.PointStruct, len(vectors))
	for i, v := range vectors {
		if len(v) != q.dims {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), q.dims)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(q.count + i)),
			Vectors: qdrant.NewVectorsDense(v),
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}
	q.count += len(vectors)
	return nil
}

// Search queries the collection for the k highest dot products.
func (q *Qdrant) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != q.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d", ErrDimensionMismatch, len(query), q.dims)
	}
	if k <= 0 || q.Count() == 0 {
		return []Hit{}, nil
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(k)),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	hits := make([]Hit, 0, len(points))
	for _, p := range points {
		hits = append(hits, Hit{Score: p.GetScore(), ID: int(p.GetId().GetNum())})
	}
	return hits, nil
}

// Count returns the number of points added or present at open.
func (q *Qdrant) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dimensions returns the vector width.
func (q *Qdrant) Dimensions() int {
	return q.dims
}

// Publish atomically points the configured alias at this collection. A
// plain collection already holding the alias name is dropped first.
func (q *Qdrant) Publish(ctx context.Context) error {
	if q.alias == "" || q.alias == q.collection {
		return nil
	}

	names, err := q.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}
	if slices.Contains(names, q.alias) {
		if err := q.client.DeleteCollection(ctx, q.alias); err != nil {
			return fmt.Errorf("dropping collection %s: %w", q.alias, err)
		}
	}

	aliases, err := q.client.ListAliases(ctx)
	if err != nil {
		return fmt.Errorf("listing aliases: %w", err)
	}
	var actions []*qdrant.AliasOperations
	for _, a := range aliases {
		if a.GetAliasName() == q.alias {
			actions = append(actions, qdrant.NewAliasDelete(q.alias))
			break
		}
	}
	actions = append(actions, qdrant.NewAliasCreate(q.alias, q.collection))
	if err := q.client.UpdateAliases(ctx, actions); err != nil {
		return fmt.Errorf("pointing alias %s at %s: %w", q.alias, q.collection, err)
	}
	return nil
}

// Close closes the gRPC connection, first deleting the collection when
// it was opened with DropOnClose.
func (q *Qdrant) Close() error {
	var dropErr error
	if q.drop {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
			dropErr = fmt.Errorf("dropping collection %s: %w", q.collection, err)
		}
		cancel()
	}
	if err := q.client.Close(); err != nil {
		return err
	}
	return dropErr
}
