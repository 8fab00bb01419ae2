package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"godb/internal/catalog"
	"godb/internal/dberrors"
	"godb/internal/engine"
	"godb/internal/engine/rowcodec"
	"godb/internal/sql"
)

// errExit is returned by dispatch when the statement was EXIT/QUIT, so
// callers can stop their read loop.
var errExit = fmt.Errorf("exit requested")

// dispatch parses and executes a single statement, printing its result
// (or error) to stdout exactly as the teacher's handleSQL/printResultSet
// did, generalized to this engine's operations.
func dispatch(eng *engine.Engine, log *zap.SugaredLogger, line string) error {
	stmt, err := sql.Parse(line)
	if err != nil {
		fmt.Println("parse error:", formatTypeError(err))
		return nil
	}

	switch s := stmt.(type) {
	case *sql.ExitStmt:
		return errExit

	case *sql.InsertStmt:
		if err := eng.InsertRow(s.Table, s.Values); err != nil {
			fmt.Println("error:", formatTypeError(err))
			return nil
		}
		fmt.Println("OK")

	case *sql.SelectStmt:
		dispatchSelect(eng, s)

	default:
		fmt.Println("unsupported statement")
	}
	return nil
}

func dispatchSelect(eng *engine.Engine, s *sql.SelectStmt) {
	cols, err := eng.Columns(s.Table)
	if err != nil {
		fmt.Println("error:", formatTypeError(err))
		return
	}

	var rows [][]byte

	switch {
	case s.Where == nil:
		rows, err = eng.ScanAll(s.Table)

	case isPKColumn(cols, s.Where.Column):
		pk, perr := strconv.ParseInt(s.Where.Literal, 10, 32)
		if perr != nil {
			kind := dberrors.ErrTypeMismatch
			var numErr *strconv.NumError
			if errors.As(perr, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				kind = dberrors.ErrOutOfRange
			}
			fmt.Println("error:", formatTypeError(kind))
			return
		}
		var row []byte
		row, err = eng.SelectByPK(s.Table, int32(pk))
		if row != nil {
			rows = [][]byte{row}
		}

	default:
		rows, err = eng.Scan(s.Table, s.Where.Column, s.Where.Literal)
	}

	if err != nil {
		fmt.Println("error:", formatTypeError(err))
		return
	}
	printResultSet(cols, rows)
}

func isPKColumn(cols []catalog.Column, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return c.IsPrimaryKey
		}
	}
	return false
}

func printResultSet(cols []catalog.Column, rows [][]byte) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	fmt.Println(strings.Join(names, " | "))

	for _, row := range rows {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = rowcodec.ReadField(row, c)
		}
		fmt.Println(strings.Join(parts, " | "))
	}
}
