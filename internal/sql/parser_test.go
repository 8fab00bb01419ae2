package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseInsert(t *testing.T) {
	stmt, err := Parse("INSERT INTO users VALUES (1, 'Alice');")
	require.NoError(t, err)
	ins, ok := stmt.(*InsertStmt)
	require.True(t, ok)
	require.Equal(t, "users", ins.Table)
	require.Equal(t, []string{"1", "Alice"}, ins.Values)
}

func TestParseSelectByPrimaryKey(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users WHERE id = 3;")
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStmt)
	require.True(t, ok)
	require.Equal(t, "users", sel.Table)
	require.NotNil(t, sel.Where)
	require.Equal(t, "id", sel.Where.Column)
	require.Equal(t, "3", sel.Where.Literal)
}

func TestParseSelectWithStringLiteral(t *testing.T) {
	stmt, err := Parse("SELECT * FROM products WHERE description = 'Wrench';")
	require.NoError(t, err)
	sel := stmt.(*SelectStmt)
	require.Equal(t, "Wrench", sel.Where.Literal)
}

func TestParseSelectWithoutWhere(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users;")
	require.NoError(t, err)
	sel := stmt.(*SelectStmt)
	require.Nil(t, sel.Where)
}

func TestParseExitAndQuit(t *testing.T) {
	for _, s := range []string{"EXIT;", "exit", "QUIT;", "quit"} {
		stmt, err := Parse(s)
		require.NoError(t, err)
		_, ok := stmt.(*ExitStmt)
		require.True(t, ok)
	}
}

func TestParseRejectsUnknownStatement(t *testing.T) {
	_, err := Parse("DROP TABLE users;")
	require.Error(t, err)
}

func TestParseInsertMissingValuesIsError(t *testing.T) {
	_, err := Parse("INSERT INTO users;")
	require.Error(t, err)
}

func TestParseSelectOnlySupportsStar(t *testing.T) {
	_, err := Parse("SELECT id FROM users;")
	require.Error(t, err)
}
