// Package test holds helpers shared by the tests of several packages.
package test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"

	"github.com/ipfs/go-ipld-lambda/store"
)

// Wire decodes the JSON text of a term into its generic wire tree. Numbers
// are kept as json.Number.
func Wire(t testing.TB, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decoding %q: %s", s, err)
	}
	return v
}

// MemStore returns a term store backed by a thread safe in-memory datastore.
func MemStore() *store.Store {
	return store.New(dssync.MutexWrap(datastore.NewMapDatastore()))
}
