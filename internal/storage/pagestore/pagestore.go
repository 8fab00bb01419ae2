// Package pagestore implements a paged node store: a fixed-record file
// addressed by integer node IDs, with a header record at offset 0. It
// knows nothing about what a node's bytes mean — that's the B+ tree
// layer's job (internal/index/btree) — it only guarantees full-record
// reads/writes and a durable, monotonic allocator.
package pagestore

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"godb/internal/dberrors"
)

const (
	// Magic identifies an index file.
	Magic = 0x12345678
	// Version is the on-disk header format version.
	Version = 1
	// HeaderSize is the fixed byte size of the header record at offset 0.
	HeaderSize = 32
)

// Header is the 32-byte record persisted at offset 0 of every index file.
// Only the first 20 bytes are meaningful; the rest is zero padding to fill
// HeaderSize exactly.
type Header struct {
	Magic    int32
	Version  int32
	NodeSize int32
	RootID   int32
	NextID   int32
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Magic))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Version))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.NodeSize))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.RootID))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.NextID))
	return buf
}

func decodeHeader(buf []byte) Header {
	return Header{
		Magic:    int32(binary.LittleEndian.Uint32(buf[0:4])),
		Version:  int32(binary.LittleEndian.Uint32(buf[4:8])),
		NodeSize: int32(binary.LittleEndian.Uint32(buf[8:12])),
		RootID:   int32(binary.LittleEndian.Uint32(buf[12:16])),
		NextID:   int32(binary.LittleEndian.Uint32(buf[16:20])),
	}
}

// Store holds one open index file for one table's primary-key B+ tree.
type Store struct {
	fs   afero.Fs
	f    afero.File
	path string
	log  *zap.SugaredLogger

	header   Header
	nodeSize int32
}

// Open opens or creates the index file at path. When the file does not yet
// exist, it is created with a fresh header (root_id=0, next_id=1) and
// initialRoot is written as node 0 — the caller (btree.Tree) supplies the
// encoded bytes of an empty leaf, since pagestore does not interpret node
// contents. When the file exists, the header is read and validated: a magic
// mismatch is fatal (dberrors.ErrCorruptIndex); a node_size mismatch is only
// warned about.
func Open(fs afero.Fs, path string, nodeSize int32, initialRoot []byte, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	existed, err := afero.Exists(fs, path)
	if err != nil {
		return nil, dberrors.WrapIO(err, "stat", path)
	}

	f, err := fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, dberrors.WrapIO(err, "open", path)
	}

	s := &Store{fs: fs, f: f, path: path, log: log, nodeSize: nodeSize}

	if !existed {
		s.header = Header{Magic: Magic, Version: Version, NodeSize: nodeSize, RootID: 0, NextID: 1}
		if err := s.flushHeader(); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := s.WriteNode(0, initialRoot); err != nil {
			_ = f.Close()
			return nil, err
		}
		log.Debugw("initialized new index file", "path", path)
		return s, nil
	}

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(dberrors.ErrCorruptIndex, "%s: short header read: %v", path, err)
	}
	h := decodeHeader(buf)
	if h.Magic != Magic {
		_ = f.Close()
		return nil, errors.Wrapf(dberrors.ErrCorruptIndex, "%s: bad magic %#x", path, h.Magic)
	}
	if h.NodeSize != nodeSize {
		log.Warnw("index node size mismatch", "path", path, "file_node_size", h.NodeSize, "expected", nodeSize)
	}
	s.header = h
	log.Debugw("opened existing index file", "path", path, "root_id", h.RootID, "next_id", h.NextID)
	return s, nil
}

func (s *Store) flushHeader() error {
	if _, err := s.f.WriteAt(s.header.encode(), 0); err != nil {
		return dberrors.WrapIO(err, "write header", s.path)
	}
	return s.sync()
}

func (s *Store) sync() error {
	if syncer, ok := s.f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return dberrors.WrapIO(err, "flush", s.path)
		}
	}
	return nil
}

func (s *Store) offset(id int32) int64 {
	return int64(HeaderSize) + int64(id)*int64(s.nodeSize)
}

// ReadNode reads the full fixed-size record for node id.
func (s *Store) ReadNode(id int32) ([]byte, error) {
	buf := make([]byte, s.nodeSize)
	n, err := s.f.ReadAt(buf, s.offset(id))
	if err != nil && !(err == io.EOF && n == int(s.nodeSize)) {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(dberrors.ErrCorruptIndex, "%s: unexpected EOF reading node %d", s.path, id)
		}
		return nil, dberrors.WrapIO(err, "read node", s.path)
	}
	return buf, nil
}

// WriteNode writes the full fixed-size record for node id and flushes.
func (s *Store) WriteNode(id int32, buf []byte) error {
	if int32(len(buf)) != s.nodeSize {
		return errors.Errorf("pagestore: write node %d: wrong size %d, want %d", id, len(buf), s.nodeSize)
	}
	if _, err := s.f.WriteAt(buf, s.offset(id)); err != nil {
		return dberrors.WrapIO(err, "write node", s.path)
	}
	return s.sync()
}

// Allocate returns the next free node ID and durably persists the
// incremented counter before returning.
func (s *Store) Allocate() (int32, error) {
	id := s.header.NextID
	s.header.NextID++
	if err := s.flushHeader(); err != nil {
		s.header.NextID--
		return 0, err
	}
	return id, nil
}

// RootID returns the current root node ID.
func (s *Store) RootID() int32 { return s.header.RootID }

// SetRootID updates and durably persists the header's root_id.
func (s *Store) SetRootID(id int32) error {
	s.header.RootID = id
	return s.flushHeader()
}

// Close closes the underlying file handle.
func (s *Store) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return dberrors.WrapIO(err, "close", s.path)
	}
	return nil
}
