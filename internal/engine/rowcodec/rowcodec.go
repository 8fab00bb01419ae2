// Package rowcodec encodes and decodes fixed-width row fields: strings
// are always zero-padded on write, but readers tolerate both a
// zero-padded field and one that fully fills its column with no
// terminator.
package rowcodec

import (
	"encoding/binary"
	"strconv"

	"github.com/pkg/errors"

	"godb/internal/catalog"
	"godb/internal/dberrors"
)

// SetInt32 writes a little-endian int32 into row at col's offset.
func SetInt32(row []byte, col catalog.Column, v int32) {
	binary.LittleEndian.PutUint32(row[col.Offset:col.Offset+col.Size], uint32(v))
}

// ReadInt32 reads the little-endian int32 stored at col's offset.
func ReadInt32(row []byte, col catalog.Column) int32 {
	return int32(binary.LittleEndian.Uint32(row[col.Offset : col.Offset+col.Size]))
}

// SetString writes value into row at col's offset, always zero-padding
// short values and truncating long ones with a forced trailing null.
func SetString(row []byte, col catalog.Column, value string) {
	field := row[col.Offset : col.Offset+col.Size]
	n := copy(field, value)
	if n < len(field) {
		for i := n; i < len(field); i++ {
			field[i] = 0
		}
	} else if n == len(field) && n > 0 {
		field[len(field)-1] = 0
	}
}

// ReadString reads a fixed-width string field, tolerating both a
// null-terminated/zero-padded field and one that fully fills the column
// with no terminator.
func ReadString(row []byte, col catalog.Column) string {
	field := row[col.Offset : col.Offset+col.Size]
	if i := indexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// SetField dispatches to SetInt32/SetString by col.Type, parsing value
// from its string representation. Used by the row engine's INSERT path.
func SetField(row []byte, col catalog.Column, value string) error {
	switch col.Type {
	case catalog.ColInt32:
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			kind := dberrors.ErrTypeMismatch
			if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
				kind = dberrors.ErrOutOfRange
			}
			return errors.Wrapf(kind, "column %q: %v", col.Name, err)
		}
		SetInt32(row, col, int32(n))
	case catalog.ColFixedString:
		SetString(row, col, value)
	default:
		return errors.Wrapf(dberrors.ErrTypeMismatch, "column %q: unknown type", col.Name)
	}
	return nil
}

// ReadField renders col's value as its string representation, used by
// SELECT result formatting.
func ReadField(row []byte, col catalog.Column) string {
	switch col.Type {
	case catalog.ColInt32:
		return strconv.FormatInt(int64(ReadInt32(row, col)), 10)
	case catalog.ColFixedString:
		return ReadString(row, col)
	default:
		return ""
	}
}

// MatchesFilter reports whether row's value at col equals filter.
func MatchesFilter(row []byte, col catalog.Column, filter string) (bool, error) {
	switch col.Type {
	case catalog.ColInt32:
		want, err := strconv.ParseInt(filter, 10, 32)
		if err != nil {
			return false, errors.Wrapf(dberrors.ErrTypeMismatch, "column %q: %v", col.Name, err)
		}
		return int64(ReadInt32(row, col)) == want, nil
	case catalog.ColFixedString:
		return ReadString(row, col) == filter, nil
	default:
		return false, errors.Wrapf(dberrors.ErrTypeMismatch, "column %q: unknown type", col.Name)
	}
}
