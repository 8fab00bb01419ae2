// Package engine implements insert, point lookup, and scan against a
// loaded catalog.
package engine

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"godb/internal/catalog"
	"godb/internal/dberrors"
	"godb/internal/engine/rowcodec"
)

// Engine executes row-level operations against one Catalog.
type Engine struct {
	cat *catalog.Catalog
	fs  afero.Fs
	log *zap.SugaredLogger
}

// New builds an Engine over an already-loaded catalog.
func New(cat *catalog.Catalog, fs afero.Fs, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{cat: cat, fs: fs, log: log}
}

// InsertRow resolves the table, extracts the PK, rejects duplicates,
// appends the row, then indexes it. The append and the index insert are
// not atomic; an index-insert failure after a successful append leaves
// an orphan row, which is accepted.
func (e *Engine) InsertRow(table string, values []string) error {
	schema, err := e.cat.Table(table)
	if err != nil {
		return err
	}
	pkCol, hasPK := schema.PKColumn()
	if !hasPK {
		return errors.Wrapf(dberrors.ErrNoPrimaryKey, "table %q", table)
	}
	if len(values) != len(schema.Columns) {
		return errors.Wrapf(dberrors.ErrSchema, "table %q: expected %d values, got %d", table, len(schema.Columns), len(values))
	}

	row := make([]byte, schema.RowSize)
	for i, col := range schema.Columns {
		if err := rowcodec.SetField(row, col, values[i]); err != nil {
			return err
		}
	}

	pk := rowcodec.ReadInt32(row, pkCol)

	if _, found, err := schema.Index.Search(pk); err != nil {
		return err
	} else if found {
		return errors.Wrapf(dberrors.ErrDuplicateKey, "table %q: pk %d", table, pk)
	}

	offset, err := e.appendRow(schema.DataPath, row)
	if err != nil {
		return err
	}

	if err := schema.Index.Insert(pk, offset); err != nil {
		return err
	}

	e.log.Debugw("row inserted", "table", table, "pk", pk, "offset", offset)
	return nil
}

func (e *Engine) appendRow(path string, row []byte) (int64, error) {
	f, err := e.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return 0, dberrors.WrapIO(err, "open", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, dberrors.WrapIO(err, "stat", path)
	}
	offset := info.Size()

	if _, err := f.Write(row); err != nil {
		return 0, dberrors.WrapIO(err, "append", path)
	}
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return 0, dberrors.WrapIO(err, "flush", path)
		}
	}
	return offset, nil
}

// SelectByPK resolves table, searches its index for pk, and returns the
// row's raw bytes.
func (e *Engine) SelectByPK(table string, pk int32) ([]byte, error) {
	schema, err := e.cat.Table(table)
	if err != nil {
		return nil, err
	}
	if _, hasPK := schema.PKColumn(); !hasPK {
		return nil, errors.Wrapf(dberrors.ErrNoPrimaryKey, "table %q", table)
	}

	offset, found, err := schema.Index.Search(pk)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	return e.readRowAt(schema, offset)
}

func (e *Engine) readRowAt(schema *catalog.TableSchema, offset int64) ([]byte, error) {
	f, err := e.fs.Open(schema.DataPath)
	if err != nil {
		return nil, dberrors.WrapIO(err, "open", schema.DataPath)
	}
	defer f.Close()

	row := make([]byte, schema.RowSize)
	if _, err := f.ReadAt(row, offset); err != nil {
		return nil, dberrors.WrapIO(err, "read", schema.DataPath)
	}
	return row, nil
}

// Scan reads every row of table sequentially and returns those whose
// column value equals filter. Any comparison error aborts the scan.
func (e *Engine) Scan(table, column, filter string) ([][]byte, error) {
	schema, err := e.cat.Table(table)
	if err != nil {
		return nil, err
	}
	col, ok := schema.Column(column)
	if !ok {
		return nil, errors.Wrapf(dberrors.ErrNoSuchColumn, "table %q: column %q", table, column)
	}

	f, err := e.fs.Open(schema.DataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberrors.WrapIO(err, "open", schema.DataPath)
	}
	defer f.Close()

	var matches [][]byte
	row := make([]byte, schema.RowSize)
	var offset int64
	for {
		n, err := f.ReadAt(row, offset)
		if n == len(row) {
			ok, merr := rowcodec.MatchesFilter(row, col, filter)
			if merr != nil {
				return nil, merr
			}
			if ok {
				cp := make([]byte, len(row))
				copy(cp, row)
				matches = append(matches, cp)
			}
			offset += int64(len(row))
		}
		if err != nil {
			break
		}
	}
	return matches, nil
}

// Columns exposes a table's column list, for result formatting in the
// command layer.
func (e *Engine) Columns(table string) ([]catalog.Column, error) {
	schema, err := e.cat.Table(table)
	if err != nil {
		return nil, err
	}
	return schema.Columns, nil
}

// ScanAll returns every row of table, for a SELECT with no WHERE clause.
func (e *Engine) ScanAll(table string) ([][]byte, error) {
	schema, err := e.cat.Table(table)
	if err != nil {
		return nil, err
	}

	f, err := e.fs.Open(schema.DataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberrors.WrapIO(err, "open", schema.DataPath)
	}
	defer f.Close()

	var all [][]byte
	row := make([]byte, schema.RowSize)
	var offset int64
	for {
		n, err := f.ReadAt(row, offset)
		if n == len(row) {
			cp := make([]byte, len(row))
			copy(cp, row)
			all = append(all, cp)
			offset += int64(len(row))
		}
		if err != nil {
			break
		}
	}
	return all, nil
}
