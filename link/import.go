package link

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nasdf/meeple/record"
	"github.com/nasdf/meeple/storage"

	"github.com/ipld/go-car/v2"
	"github.com/ipld/go-ipld-prime/datamodel"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"
)

var ErrInvalidArchive = errors.New("invalid archive")

// Import reads a CAR written by Export and writes every record it contains to the storage.
//
// Records with the same collection and id are replaced. Other data is left untouched.
func Import(ctx context.Context, in io.Reader, s storage.Storage) error {
	br, err := car.NewBlockReader(in)
	if err != nil {
		return err
	}
	if len(br.Roots) != 1 {
		return fmt.Errorf("%w: expected one root but got %d", ErrInvalidArchive, len(br.Roots))
	}
	blocks := NewStore()
	for {
		blk, err := br.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		err = blocks.Put(ctx, blk.Cid(), blk.RawData())
		if err != nil {
			return err
		}
	}
	return LoadArchive(ctx, blocks, cidlink.Link{Cid: br.Roots[0]}, s)
}

// LoadArchive writes every record reachable from the root link to the storage.
func LoadArchive(ctx context.Context, blocks *Store, rootLink datamodel.Link, s storage.Storage) error {
	root, err := blocks.Load(ctx, rootLink, basicnode.Prototype.Map)
	if err != nil {
		return err
	}
	version, err := root.LookupByString(RootVersionFieldName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	v, err := version.AsInt()
	if err != nil || v != ArchiveVersion {
		return fmt.Errorf("%w: unsupported version", ErrInvalidArchive)
	}
	collections, err := root.LookupByString(RootCollectionsFieldName)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	iter := collections.MapIterator()
	if iter == nil {
		return fmt.Errorf("%w: collections is not a map", ErrInvalidArchive)
	}
	for !iter.Done() {
		k, v, err := iter.Next()
		if err != nil {
			return err
		}
		name, err := k.AsString()
		if err != nil {
			return err
		}
		lnk, err := v.AsLink()
		if err != nil {
			return err
		}
		err = loadCollection(ctx, blocks, lnk, name, s)
		if err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
	}
	return nil
}

func loadCollection(ctx context.Context, blocks *Store, lnk datamodel.Link, name string, s storage.Storage) error {
	list, err := blocks.Load(ctx, lnk, basicnode.Prototype.List)
	if err != nil {
		return err
	}
	iter := list.ListIterator()
	if iter == nil {
		return fmt.Errorf("%w: collection is not a list", ErrInvalidArchive)
	}
	for !iter.Done() {
		_, entry, err := iter.Next()
		if err != nil {
			return err
		}
		idNode, err := entry.LookupByString(EntryIDFieldName)
		if err != nil {
			return err
		}
		id, err := idNode.AsString()
		if err != nil {
			return err
		}
		recNode, err := entry.LookupByString(EntryRecordFieldName)
		if err != nil {
			return err
		}
		recLink, err := recNode.AsLink()
		if err != nil {
			return err
		}
		node, err := blocks.Load(ctx, recLink, basicnode.Prototype.Map)
		if err != nil {
			return err
		}
		rec, err := record.RecordFromNode(node)
		if err != nil {
			return err
		}
		err = s.Put(ctx, name, id, rec)
		if err != nil {
			return err
		}
	}
	return nil
}
