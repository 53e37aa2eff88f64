package link

import (
	"context"
	"io"

	"github.com/nasdf/meeple/record"
	"github.com/nasdf/meeple/storage"

	"github.com/ipld/go-car/v2"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/fluent/qp"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	"github.com/ipld/go-ipld-prime/traversal/selector"
	"github.com/ipld/go-ipld-prime/traversal/selector/builder"
)

const (
	// ArchiveVersion is the version written to the root of every archive.
	ArchiveVersion = 1

	RootVersionFieldName     = "version"
	RootCollectionsFieldName = "collections"
	EntryIDFieldName         = "id"
	EntryRecordFieldName     = "record"
)

// Export writes a CAR containing every collection in the storage to the given io.Writer.
//
// Each record is its own block. Collections are lists of id and record link
// pairs so enumeration order survives a round trip.
func Export(ctx context.Context, s storage.Storage, out io.Writer) error {
	blocks := NewStore()
	rootLink, err := BuildArchive(ctx, blocks, s)
	if err != nil {
		return err
	}
	return blocks.Export(ctx, rootLink, out)
}

// BuildArchive writes every collection in the storage to the block store and returns the root link.
func BuildArchive(ctx context.Context, blocks *Store, s storage.Storage) (datamodel.Link, error) {
	names, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	collections := make(map[string]datamodel.Link, len(names))
	for _, name := range names {
		entries, err := s.Scan(ctx, name)
		if err != nil {
			return nil, err
		}
		lnk, err := buildCollection(ctx, blocks, entries)
		if err != nil {
			return nil, err
		}
		collections[name] = lnk
	}
	rootNode, err := qp.BuildMap(basicnode.Prototype.Map, 2, func(ma datamodel.MapAssembler) {
		qp.MapEntry(ma, RootVersionFieldName, qp.Int(ArchiveVersion))
		qp.MapEntry(ma, RootCollectionsFieldName, qp.Map(int64(len(names)), func(ma datamodel.MapAssembler) {
			for _, name := range names {
				qp.MapEntry(ma, name, qp.Link(collections[name]))
			}
		}))
	})
	if err != nil {
		return nil, err
	}
	return blocks.Store(ctx, rootNode)
}

func buildCollection(ctx context.Context, blocks *Store, entries []storage.Entry) (datamodel.Link, error) {
	links := make([]datamodel.Link, len(entries))
	for i, e := range entries {
		node, err := record.RecordNode(e.Record)
		if err != nil {
			return nil, err
		}
		links[i], err = blocks.Store(ctx, node)
		if err != nil {
			return nil, err
		}
	}
	node, err := qp.BuildList(basicnode.Prototype.List, int64(len(entries)), func(la datamodel.ListAssembler) {
		for i, e := range entries {
			qp.ListEntry(la, qp.Map(2, func(ma datamodel.MapAssembler) {
				qp.MapEntry(ma, EntryIDFieldName, qp.String(e.ID))
				qp.MapEntry(ma, EntryRecordFieldName, qp.Link(links[i]))
			}))
		}
	})
	if err != nil {
		return nil, err
	}
	return blocks.Store(ctx, node)
}

// Export writes a CAR containing the DAG starting from the given root link to the given io.Writer.
func (s *Store) Export(ctx context.Context, rootLink datamodel.Link, out io.Writer) error {
	cid := rootLink.(cidlink.Link).Cid
	ssb := builder.NewSelectorSpecBuilder(basicnode.Prototype.Any)
	sel := ssb.ExploreRecursive(selector.RecursionLimitNone(), ssb.ExploreAll(ssb.ExploreRecursiveEdge()))

	w, err := car.NewSelectiveWriter(ctx, &s.lsys, cid, sel.Node())
	if err != nil {
		return err
	}
	_, err = w.WriteTo(out)
	return err
}
