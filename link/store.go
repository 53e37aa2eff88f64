// Package link archives storage contents as a content addressed DAG in CAR format.
//
// Archives are fixture tooling for seeding and inspecting an emulator. They
// are not a persistence layer.
package link

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/linking"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/storage/memstore"

	// codecs need to be initialized and registered
	_ "github.com/ipld/go-ipld-prime/codec/dagcbor"
)

var linkPrototype = cidlink.LinkPrototype{Prefix: cid.Prefix{
	Version:  1,    // Usually '1'.
	Codec:    0x71, // dag-cbor -- See the multicodecs table: https://github.com/multiformats/multicodec/
	MhType:   0x13, // sha2-512 -- See the multicodecs table: https://github.com/multiformats/multicodec/
	MhLength: 64,   // sha2-512 hash has a 64-byte sum.
}}

// Store is a content addressable block store held in memory.
type Store struct {
	lsys   linking.LinkSystem
	blocks *memstore.Store
}

// NewStore returns an empty Store.
func NewStore() *Store {
	blocks := &memstore.Store{}
	lsys := cidlink.DefaultLinkSystem()
	lsys.SetReadStorage(blocks)
	lsys.SetWriteStorage(blocks)

	return &Store{
		lsys:   lsys,
		blocks: blocks,
	}
}

// Load returns the node matching the given link and built using the given prototype.
func (s *Store) Load(ctx context.Context, lnk datamodel.Link, np datamodel.NodePrototype) (datamodel.Node, error) {
	return s.lsys.Load(linking.LinkContext{Ctx: ctx}, lnk, np)
}

// Store writes the given node and returns its link.
func (s *Store) Store(ctx context.Context, node datamodel.Node) (datamodel.Link, error) {
	return s.lsys.Store(linking.LinkContext{Ctx: ctx}, linkPrototype, node)
}

// Put writes a raw block with the given cid.
func (s *Store) Put(ctx context.Context, c cid.Cid, data []byte) error {
	return s.blocks.Put(ctx, cidlink.Link{Cid: c}.Binary(), data)
}

// Len returns the number of blocks in the store.
func (s *Store) Len() int {
	return len(s.blocks.Bag)
}
