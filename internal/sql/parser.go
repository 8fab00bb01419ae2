package sql

import (
	"fmt"
	"strings"
)

// Parse parses a single semicolon-terminated statement string into a
// Statement. The leading keyword dispatches to INSERT, SELECT, or
// EXIT/QUIT.
func Parse(query string) (Statement, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty statement")
	}
	if strings.HasSuffix(q, ";") {
		q = strings.TrimSpace(q[:len(q)-1])
	}
	if q == "" {
		return nil, fmt.Errorf("empty statement")
	}

	upper := strings.ToUpper(q)
	switch {
	case upper == "EXIT" || upper == "QUIT":
		return &ExitStmt{}, nil
	case strings.HasPrefix(upper, "INSERT"):
		return parseInsert(q)
	case strings.HasPrefix(upper, "SELECT"):
		return parseSelect(q)
	default:
		return nil, fmt.Errorf("unsupported statement: %q", q)
	}
}

// parseInsert parses `INSERT INTO <table> VALUES (v1, v2, …)`.
func parseInsert(query string) (Statement, error) {
	upper := strings.ToUpper(query)

	idxInto := strings.Index(upper, "INTO")
	if idxInto == -1 {
		return nil, fmt.Errorf("INSERT: missing INTO")
	}
	afterInto := strings.TrimSpace(query[idxInto+len("INTO"):])

	upperAfterInto := strings.ToUpper(afterInto)
	idxValues := strings.Index(upperAfterInto, "VALUES")
	if idxValues == -1 {
		return nil, fmt.Errorf("INSERT: missing VALUES")
	}

	table := strings.TrimSpace(afterInto[:idxValues])
	if table == "" {
		return nil, fmt.Errorf("INSERT: missing table name")
	}

	rest := strings.TrimSpace(afterInto[idxValues+len("VALUES"):])
	if !strings.HasPrefix(rest, "(") {
		return nil, fmt.Errorf("INSERT: expected '(' after VALUES")
	}
	closeIdx := strings.LastIndex(rest, ")")
	if closeIdx == -1 {
		return nil, fmt.Errorf("INSERT: missing closing ')'")
	}

	valuesPart := strings.TrimSpace(rest[1:closeIdx])
	if valuesPart == "" {
		return nil, fmt.Errorf("INSERT: empty VALUES list")
	}

	raw := splitCommaSeparated(valuesPart)
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		values = append(values, parseLiteralText(v))
	}

	return &InsertStmt{Table: table, Values: values}, nil
}

// parseSelect parses `SELECT * FROM <table> [WHERE <col> = <literal>]`.
func parseSelect(query string) (Statement, error) {
	upper := strings.ToUpper(query)

	tokens := strings.Fields(upper)
	if len(tokens) < 2 || tokens[0] != "SELECT" {
		return nil, fmt.Errorf("SELECT: expected SELECT")
	}
	if tokens[1] != "*" {
		return nil, fmt.Errorf("SELECT: only SELECT * is supported")
	}

	idxFrom := strings.Index(upper, "FROM")
	if idxFrom == -1 {
		return nil, fmt.Errorf("SELECT: FROM not found")
	}
	afterFrom := strings.TrimSpace(query[idxFrom+len("FROM"):])
	if afterFrom == "" {
		return nil, fmt.Errorf("SELECT: missing table name")
	}

	upperAfter := strings.ToUpper(afterFrom)
	idxWhere := strings.Index(upperAfter, "WHERE")

	var table, wherePart string
	if idxWhere == -1 {
		toks := strings.Fields(afterFrom)
		if len(toks) == 0 {
			return nil, fmt.Errorf("SELECT: missing table name")
		}
		table = toks[0]
	} else {
		toks := strings.Fields(strings.TrimSpace(afterFrom[:idxWhere]))
		if len(toks) == 0 {
			return nil, fmt.Errorf("SELECT: missing table name before WHERE")
		}
		table = toks[0]
		wherePart = strings.TrimSpace(afterFrom[idxWhere+len("WHERE"):])
		if wherePart == "" {
			return nil, fmt.Errorf("SELECT: empty WHERE clause")
		}
	}

	stmt := &SelectStmt{Table: table}
	if wherePart != "" {
		where, err := parseWhereClause(wherePart)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

// parseWhereClause parses `column = literal`; the grammar supports only
// equality.
func parseWhereClause(s string) (*WhereExpr, error) {
	idxEq := strings.Index(s, "=")
	if idxEq == -1 {
		return nil, fmt.Errorf("WHERE: only '=' is supported")
	}
	col := strings.TrimSpace(s[:idxEq])
	val := strings.TrimSpace(s[idxEq+1:])
	if col == "" {
		return nil, fmt.Errorf("WHERE: missing column name")
	}
	if val == "" {
		return nil, fmt.Errorf("WHERE: missing value after '='")
	}
	return &WhereExpr{Column: col, Literal: parseLiteralText(val)}, nil
}
