// Package catalog loads a table's text metadata file and owns, for
// process lifetime, one B+ tree index and one data-file path per table.
package catalog

import (
	"bufio"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"godb/internal/dberrors"
	"godb/internal/index/btree"
)

const (
	metadataFile = "metadata.dbm"
	tableDataExt = ".tbl"
	pkIndexFile  = "pk.idx"

	// MaxTables and MaxColumns cap the number of tables loaded and the
	// number of columns per table, mirroring constants.h's
	// MAX_TABLES/MAX_COLUMNS.
	MaxTables  = 16
	MaxColumns = 32

	// MaxStringColumnSize clamps an oversized string column declaration.
	MaxStringColumnSize = 4096
	// defaultStringColumnSize is used when a string column's size argument
	// is missing or unparseable.
	defaultStringColumnSize = 64
)

// ColumnType is the closed set of column types a schema may declare.
type ColumnType int

const (
	ColInt32 ColumnType = iota
	ColFixedString
)

// Column is one field of a TableSchema: its name, type, byte size, and
// byte offset within a row.
type Column struct {
	Name         string
	Type         ColumnType
	Size         int
	Offset       int
	IsPrimaryKey bool
}

// TableSchema is a loaded table: its columns, row layout, and the open
// index handle that backs primary-key lookups.
type TableSchema struct {
	Name      string
	Columns   []Column
	RowSize   int
	PKIndex   int // -1 if the table has no primary key
	DataPath  string
	IndexPath string
	Index     *btree.Tree
}

// PKColumn returns the schema's primary-key column, or false if it has
// none.
func (s *TableSchema) PKColumn() (Column, bool) {
	if s.PKIndex < 0 {
		return Column{}, false
	}
	return s.Columns[s.PKIndex], true
}

// Column looks up a column by name.
func (s *TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Catalog is the in-memory registry of every loaded table, rooted at one
// data directory.
type Catalog struct {
	fs      afero.Fs
	dataDir string
	log     *zap.SugaredLogger
	tables  map[string]*TableSchema
}

// Load reads (or bootstraps) metadata.dbm under dataDir, opening one
// btree.Tree per INT-PK table. If the metadata file is absent, a default
// two-table schema is synthesized and persisted first.
func Load(fs afero.Fs, dataDir string, log *zap.SugaredLogger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if err := fs.MkdirAll(dataDir, 0o755); err != nil {
		return nil, dberrors.WrapIO(err, "mkdir", dataDir)
	}

	metaPath := path.Join(dataDir, metadataFile)
	exists, err := afero.Exists(fs, metaPath)
	if err != nil {
		return nil, dberrors.WrapIO(err, "stat", metaPath)
	}
	if !exists {
		log.Infow("metadata file absent, writing default schema", "path", metaPath)
		if err := afero.WriteFile(fs, metaPath, []byte(defaultMetadata), 0o644); err != nil {
			return nil, dberrors.WrapIO(err, "write", metaPath)
		}
	}

	text, err := afero.ReadFile(fs, metaPath)
	if err != nil {
		return nil, dberrors.WrapIO(err, "read", metaPath)
	}

	schemas, err := parseMetadata(string(text), log)
	if err != nil {
		return nil, err
	}

	c := &Catalog{fs: fs, dataDir: dataDir, log: log, tables: make(map[string]*TableSchema, len(schemas))}

	for _, s := range schemas {
		tableDir := path.Join(dataDir, s.Name)
		if err := fs.MkdirAll(tableDir, 0o755); err != nil {
			c.closeAll()
			return nil, dberrors.WrapIO(err, "mkdir", tableDir)
		}
		s.DataPath = path.Join(tableDir, s.Name+tableDataExt)
		s.IndexPath = path.Join(tableDir, pkIndexFile)

		if _, hasPK := s.PKColumn(); hasPK {
			idx, err := btree.Open(fs, s.IndexPath, log)
			if err != nil {
				c.closeAll()
				return nil, errors.Wrapf(dberrors.ErrSchema, "table %q: open index: %v", s.Name, err)
			}
			s.Index = idx
		}
		c.tables[s.Name] = s
	}

	log.Infow("catalog loaded", "tables", len(c.tables), "data_dir", dataDir)
	return c, nil
}

// Table returns the named table's schema, or ErrNoSuchTable.
func (c *Catalog) Table(name string) (*TableSchema, error) {
	s, ok := c.tables[name]
	if !ok {
		return nil, errors.Wrapf(dberrors.ErrNoSuchTable, "table %q", name)
	}
	return s, nil
}

// Tables returns every loaded table name.
func (c *Catalog) Tables() []string {
	names := make([]string, 0, len(c.tables))
	for n := range c.tables {
		names = append(names, n)
	}
	return names
}

func (c *Catalog) closeAll() {
	for _, s := range c.tables {
		if s.Index != nil {
			_ = s.Index.Close()
		}
	}
}

// Close closes every open index file and clears the registry.
func (c *Catalog) Close() error {
	c.closeAll()
	c.tables = nil
	return nil
}

const defaultMetadata = `# default schema: synthesized because metadata.dbm was absent
table:users
column:id:int:primary_key
column:name:string:50

table:products
column:prod_id:int:primary_key
column:description:string:100
column:price:int
`

// parseMetadata parses the line-oriented "table:"/"column:" directive
// format persisted in metadata.dbm.
func parseMetadata(text string, log *zap.SugaredLogger) ([]*TableSchema, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var schemas []*TableSchema
	var cur *TableSchema

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "table:"):
			name := strings.TrimPrefix(line, "table:")
			if name == "" {
				log.Warnw("skipping malformed table directive", "line", line)
				continue
			}
			if len(schemas) >= MaxTables {
				log.Warnw("table limit exceeded, skipping", "table", name, "limit", MaxTables)
				cur = nil
				continue
			}
			cur = &TableSchema{Name: name, PKIndex: -1}
			schemas = append(schemas, cur)

		case strings.HasPrefix(line, "column:"):
			if cur == nil {
				log.Warnw("column directive outside any table, skipping", "line", line)
				continue
			}
			col, ok := parseColumnDirective(line, log)
			if !ok {
				continue
			}
			if len(cur.Columns) >= MaxColumns {
				log.Warnw("column limit exceeded, skipping", "table", cur.Name, "column", col.Name, "limit", MaxColumns)
				continue
			}
			col.Offset = cur.RowSize
			if col.IsPrimaryKey {
				if col.Type != ColInt32 {
					log.Warnw("non-INT primary key downgraded, table will be index-less", "table", cur.Name, "column", col.Name)
					col.IsPrimaryKey = false
				} else if cur.PKIndex != -1 {
					log.Warnw("duplicate primary key declaration ignored", "table", cur.Name, "column", col.Name)
					col.IsPrimaryKey = false
				} else {
					cur.PKIndex = len(cur.Columns)
				}
			}
			cur.Columns = append(cur.Columns, col)
			cur.RowSize += col.Size

		default:
			log.Warnw("skipping unrecognized metadata line", "line", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, dberrors.WrapIO(err, "scan", metadataFile)
	}
	return schemas, nil
}

// parseColumnDirective parses "column:<name>:<type>[:<arg>[:<flag>]]".
func parseColumnDirective(line string, log *zap.SugaredLogger) (Column, bool) {
	parts := strings.Split(line, ":")
	if len(parts) < 3 {
		log.Warnw("malformed column directive, skipping", "line", line)
		return Column{}, false
	}
	name := parts[1]
	typeTok := strings.ToLower(parts[2])
	rest := parts[3:]

	col := Column{Name: name}

	switch typeTok {
	case "int":
		col.Type = ColInt32
		col.Size = 4
		for _, arg := range rest {
			if arg == "primary_key" {
				col.IsPrimaryKey = true
			}
		}
	case "string":
		col.Type = ColFixedString
		col.Size = defaultStringColumnSize
		if len(rest) > 0 {
			if n, err := strconv.Atoi(rest[0]); err == nil && n > 0 {
				if n > MaxStringColumnSize {
					n = MaxStringColumnSize
				}
				col.Size = n
			} else {
				log.Warnw("invalid string column size, using default", "column", name, "arg", rest[0], "default", defaultStringColumnSize)
			}
		}
		for _, arg := range rest {
			if arg == "primary_key" {
				col.IsPrimaryKey = true
			}
		}
	default:
		log.Warnw("unknown column type, skipping column", "column", name, "type", typeTok)
		return Column{}, false
	}

	return col, true
}
