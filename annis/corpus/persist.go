package corpus

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/korpling/graphANNIS-sub001"
	"github.com/korpling/graphANNIS-sub001/annis/annoindex"
	"github.com/korpling/graphANNIS-sub001/annis/graphstorage"
	"github.com/korpling/graphANNIS-sub001/annis/stringpool"
)

// annoEntry is one (node, annotations) row of the persisted annotation
// index, gob-encoded as the value under the "nodes/" key space. Badger
// provides the ordered key space; the payload itself rides plain gob, the
// same tradeoff graphstorage's own Save/Load already makes.
type annoEntry struct {
	Node  annis.NodeId
	Annos []annis.Annotation
}

// implOf reports which graphstorage.ImplementationName built gs, needed
// to write the "implementation" marker key and to know which concrete type
// to reconstruct on Load. Every concrete storage type
// exposes the sizing parameter its implementation name is keyed on.
func implOf(gs graphstorage.ReadableGraphStorage) graphstorage.ImplementationName {
	switch s := gs.(type) {
	case *graphstorage.LinearStorage:
		switch s.PosBits() {
		case 8:
			return graphstorage.ImplLinearP8
		case 16:
			return graphstorage.ImplLinearP16
		default:
			return graphstorage.ImplLinearP32
		}
	case *graphstorage.PrePostStorage:
		switch {
		case s.OrderBits() == 16 && s.LevelBits() == 8:
			return graphstorage.ImplPrePostO16L8
		case s.OrderBits() == 16:
			return graphstorage.ImplPrePostO16L32
		case s.LevelBits() == 8:
			return graphstorage.ImplPrePostO32L8
		default:
			return graphstorage.ImplPrePostO32L32
		}
	default:
		return graphstorage.ImplAdjacencyList
	}
}

func componentKeyPrefix(c annis.Component) []byte {
	return []byte(fmt.Sprintf("gs/%s/%s/%s/", c.Type, c.Layer, c.Name))
}

// Save persists the corpus's string pool, annotation index and every
// loaded graph storage into the Badger database at dir: a "strings/" key,
// a "nodes/" key space, and one "gs/<type>/<layer>/<name>/" prefix per
// component carrying a "data" key and an "implementation" marker.
// Lazily-loaded-but-never-touched
// components are skipped; their loader is still available to re-persist
// them unchanged on a later Save once materialized.
func (c *Corpus) Save(dir string) error {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return annis.WrapError(annis.StorageIO, "opening badger store for save", err)
	}
	defer db.Close()

	return db.Update(func(txn *badger.Txn) error {
		var poolBuf bytes.Buffer
		if err := gob.NewEncoder(&poolBuf).Encode(c.Pool.Snapshot()); err != nil {
			return annis.WrapError(annis.Internal, "encoding string pool", err)
		}
		if err := txn.Set([]byte("strings/pool"), poolBuf.Bytes()); err != nil {
			return annis.WrapError(annis.StorageIO, "writing string pool", err)
		}

		var entries []annoEntry
		for _, n := range c.Annos.Nodes() {
			entries = append(entries, annoEntry{Node: n, Annos: c.Annos.GetAll(n)})
		}
		var annoBuf bytes.Buffer
		if err := gob.NewEncoder(&annoBuf).Encode(entries); err != nil {
			return annis.WrapError(annis.Internal, "encoding annotation index", err)
		}
		if err := txn.Set([]byte("nodes/index"), annoBuf.Bytes()); err != nil {
			return annis.WrapError(annis.StorageIO, "writing annotation index", err)
		}

		c.mu.RLock()
		defer c.mu.RUnlock()
		for comp, gs := range c.storages {
			data, err := gs.Save()
			if err != nil {
				return annis.WrapError(annis.StorageIO, fmt.Sprintf("serializing component %s", comp), err)
			}
			prefix := componentKeyPrefix(comp)
			if err := txn.Set(append(append([]byte(nil), prefix...), "data"...), data); err != nil {
				return annis.WrapError(annis.StorageIO, fmt.Sprintf("writing component %s", comp), err)
			}
			impl := string(implOf(gs))
			if err := txn.Set(append(append([]byte(nil), prefix...), "implementation"...), []byte(impl)); err != nil {
				return annis.WrapError(annis.StorageIO, fmt.Sprintf("writing implementation marker for %s", comp), err)
			}
		}
		return nil
	})
}

// Load opens the Badger database at dir and reconstructs a Corpus from
// its persisted string pool, annotation index and graph storages. registry
// is stored on the returned Corpus and is not consulted while loading: each
// persisted component's implementation marker decides how it is rebuilt.
func Load(dir string, registry *graphstorage.Registry) (*Corpus, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, annis.WrapError(annis.StorageIO, "opening badger store for load", err)
	}
	defer db.Close()

	var pool *stringpool.Pool
	annos := make(map[annis.NodeId][]annis.Annotation)
	componentData := make(map[annis.Component][]byte)
	componentImpl := make(map[annis.Component]graphstorage.ImplementationName)

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("strings/pool"))
		if err != nil {
			return annis.WrapError(annis.StorageIO, "reading string pool", err)
		}
		if err := item.Value(func(val []byte) error {
			var strs []string
			if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&strs); err != nil {
				return err
			}
			pool = stringpool.LoadSnapshot(strs)
			return nil
		}); err != nil {
			return annis.WrapError(annis.Internal, "decoding string pool", err)
		}

		item, err = txn.Get([]byte("nodes/index"))
		if err != nil {
			return annis.WrapError(annis.StorageIO, "reading annotation index", err)
		}
		if err := item.Value(func(val []byte) error {
			var entries []annoEntry
			if err := gob.NewDecoder(bytes.NewReader(val)).Decode(&entries); err != nil {
				return err
			}
			for _, e := range entries {
				annos[e.Node] = e.Annos
			}
			return nil
		}); err != nil {
			return annis.WrapError(annis.Internal, "decoding annotation index", err)
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("gs/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			comp, field, ok := parseComponentKey(key)
			if !ok {
				continue
			}
			err := it.Item().Value(func(val []byte) error {
				switch field {
				case "data":
					componentData[comp] = append([]byte(nil), val...)
				case "implementation":
					componentImpl[comp] = graphstorage.ImplementationName(val)
				}
				return nil
			})
			if err != nil {
				return annis.WrapError(annis.Internal, fmt.Sprintf("reading component %s", comp), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	annoIdx := annoindex.New(pool)
	for node, list := range annos {
		for _, a := range list {
			annoIdx.Add(node, a)
		}
	}

	c := New(pool, annoIdx, registry)
	for comp, data := range componentData {
		impl := componentImpl[comp]
		gs := graphstorage.NewStorage(impl)
		if err := gs.Load(data); err != nil {
			return nil, annis.WrapError(annis.StorageIO, fmt.Sprintf("loading component %s", comp), err)
		}
		c.AddStorage(comp, gs)
	}
	return c, nil
}

// parseComponentKey splits a "gs/<type>/<layer>/<name>/<field>" key back
// into its Component and field name ("data" or "implementation").
func parseComponentKey(key []byte) (annis.Component, string, bool) {
	parts := bytes.SplitN(key, []byte("/"), 5)
	if len(parts) != 5 {
		return annis.Component{}, "", false
	}
	typeName := string(parts[1])
	layer := string(parts[2])
	name := string(parts[3])
	field := string(parts[4])

	ct, ok := componentTypeFromString(typeName)
	if !ok {
		return annis.Component{}, "", false
	}
	return annis.Component{Type: ct, Layer: layer, Name: name}, field, true
}

func componentTypeFromString(s string) (annis.ComponentType, bool) {
	for _, ct := range []annis.ComponentType{
		annis.ComponentCoverage, annis.ComponentInverseCoverage, annis.ComponentDominance,
		annis.ComponentPointing, annis.ComponentOrdering, annis.ComponentLeftToken,
		annis.ComponentRightToken, annis.ComponentPartOfSubCorpus,
	} {
		if ct.String() == s {
			return ct, true
		}
	}
	return annis.ComponentType(0), false
}
