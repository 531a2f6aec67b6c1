// Package vectorindex defines the similarity index contract used by the
// knowledge pipeline. Backends live in subpackages.
package vectorindex

import "context"

// Record is a vector with its id and flat string metadata.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// Match is a query hit. Matches are returned by descending score.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Filter selects records whose metadata equals every given key/value pair.
type Filter map[string]string

// Stats reports record counts, total and per namespace.
type Stats struct {
	TotalCount int
	Namespaces map[string]int
}

type Index interface {
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter Filter) ([]Match, error)
	DeleteByFilter(ctx context.Context, namespace string, filter Filter) error
	DeleteByIDs(ctx context.Context, namespace string, ids []string) error
	DescribeStats(ctx context.Context) (Stats, error)
}
