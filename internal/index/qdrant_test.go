package index

import (
	"context"
	"os"
	"strconv"
	"testing"
)

// TestQdrant_Integration runs against a live Qdrant gRPC endpoint named by
// JREC_TEST_QDRANT (a host, e.g. localhost).
func TestQdrant_Integration(t *testing.T) {
	host := os.Getenv("JREC_TEST_QDRANT")
	if host == "" {
		t.Skip("JREC_TEST_QDRANT not set")
	}
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("JREC_TEST_QDRANT_PORT")); err == nil {
		port = p
	}

	ctx := context.Background()
	q, err := OpenQdrant(ctx, QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: "jrec_test",
		Dimensions: 3,
		Reset:      true,
	})
	if err != nil {
		t.Fatalf("OpenQdrant() error = %v", err)
	}
	defer q.Close()

	if err := q.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}, {0.6, 0.8, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if q.Count() != 3 {
		t.Errorf("Count() = %d, want 3", q.Count())
	}

	hits, err := q.Search(ctx, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ID != 1 || hits[1].ID != 2 {
		t.Errorf("Search() = %v, want ids [1 2]", hits)
	}
}

func TestQdrantImplementsIndex(t *testing.T) {
	var _ Index = (*Qdrant)(nil)
	var _ Index = (*FlatIP)(nil)
}

func TestQdrant_PublishAlias(t *testing.T) {
	host := os.Getenv("JREC_TEST_QDRANT")
	if host == "" {
		t.Skip("JREC_TEST_QDRANT not set")
	}
	port := 6334
	if p, err := strconv.Atoi(os.Getenv("JREC_TEST_QDRANT_PORT")); err == nil {
		port = p
	}

	ctx := context.Background()
	open := func(collection string) *Qdrant {
		q, err := OpenQdrant(ctx, QdrantConfig{
			Host:        host,
			Port:        port,
			Collection:  collection,
			Dimensions:  2,
			Reset:       true,
			Alias:       "jrec_test_live",
			DropOnClose: true,
		})
		if err != nil {
			t.Fatalf("OpenQdrant(%s) error = %v", collection, err)
		}
		return q
	}

	first := open("jrec_test_gen1")
	if err := first.Add(ctx, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := first.Publish(ctx); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	second := open("jrec_test_gen2")
	defer second.Close()
	if err := second.Publish(ctx); err != nil {
		t.Fatalf("second Publish() error = %v", err)
	}

	// The first generation stays searchable until it is closed.
	hits, err := first.Search(ctx, []float32{1, 0}, 1)
	if err != nil || len(hits) != 1 {
		t.Errorf("Search() on previous generation = %v, %v; want one hit", hits, err)
	}
	if err := first.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	aliases, err := second.client.ListCollectionAliases(ctx, second.collection)
	if err != nil {
		t.Fatalf("ListCollectionAliases() error = %v", err)
	}
	if len(aliases) != 1 || aliases[0] != "jrec_test_live" {
		t.Errorf("aliases of %s = %v, want [jrec_test_live]", second.collection, aliases)
	}
}
