package postgres

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ghunter254/lazy-appwrite/pkg/backend"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
)

func newMockBackend(t *testing.T) (*Backend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	b := New(nil)
	b.DB = db
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return b, mock
}

func q(s string) string {
	return regexp.QuoteMeta(s)
}

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   core.BackendConfig
		expected string
	}{
		{
			name: "basic connection",
			config: core.BackendConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: core.BackendConfig{
				Host:     "prod.example.com",
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name:     "defaults",
			config:   core.BackendConfig{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestConnect_RequiresDatabase(t *testing.T) {
	err := New(nil).Connect(context.Background(), core.BackendConfig{Host: "localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database name is required")
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		col  schema.Column
		want string
	}{
		{schema.Column{Kind: schema.KindString, Size: 64}, "VARCHAR(64)"},
		{schema.Column{Kind: schema.KindString, Size: 8, Array: true}, "VARCHAR(8)[]"},
		{schema.Column{Kind: schema.KindInteger}, "BIGINT"},
		{schema.Column{Kind: schema.KindFloat}, "DOUBLE PRECISION"},
		{schema.Column{Kind: schema.KindBoolean}, "BOOLEAN"},
		{schema.Column{Kind: schema.KindEmail}, "TEXT"},
		{schema.Column{Kind: schema.KindEnum, Array: true}, "TEXT[]"},
		{schema.Column{Kind: schema.KindDatetime}, "TIMESTAMPTZ"},
		{schema.Column{Kind: schema.KindPolygon, Array: true}, "JSONB"},
		{schema.Column{Kind: schema.KindRelationship, Relation: &schema.Relation{Type: schema.ManyToOne}}, "TEXT"},
		{schema.Column{Kind: schema.KindRelationship, Relation: &schema.Relation{Type: schema.ManyToMany}}, "TEXT[]"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, columnType(tt.col))
		})
	}
}

func TestColumnDDL(t *testing.T) {
	def, err := columnDDL(schema.Column{Key: "role", Kind: schema.KindEnum, Default: "it's"})
	require.NoError(t, err)
	assert.Equal(t, `"role" TEXT DEFAULT 'it''s'`, def)

	def, err = columnDDL(schema.Column{Key: "age", Kind: schema.KindInteger, Required: true})
	require.NoError(t, err)
	assert.Equal(t, `"age" BIGINT NOT NULL`, def)

	def, err = columnDDL(schema.Column{Key: "ratio", Kind: schema.KindFloat, Default: 0.5})
	require.NoError(t, err)
	assert.Equal(t, `"ratio" DOUBLE PRECISION DEFAULT 0.5`, def)

	_, err = columnDDL(schema.Column{Key: "x", Kind: schema.KindString, Size: 1, Default: []string{"a"}})
	assert.Error(t, err)
}

func TestIndexDDL(t *testing.T) {
	tests := []struct {
		name string
		spec core.IndexSpec
		want string
	}{
		{
			name: "key",
			spec: core.IndexSpec{Key: "by_name", Type: schema.IndexKey, Columns: []string{"name", "$createdAt"}, Orders: []string{"ASC", "DESC"}},
			want: `CREATE INDEX "users_by_name" ON "main"."users" ("name", "$createdAt" DESC)`,
		},
		{
			name: "unique",
			spec: core.IndexSpec{Key: "email", Type: schema.IndexUnique, Columns: []string{"email"}, Orders: []string{"ASC"}},
			want: `CREATE UNIQUE INDEX "users_email" ON "main"."users" ("email")`,
		},
		{
			name: "fulltext",
			spec: core.IndexSpec{Key: "search", Type: schema.IndexFulltext, Columns: []string{"bio"}},
			want: `CREATE INDEX "users_search" ON "main"."users" USING GIN (to_tsvector('simple', coalesce("bio"::text, '')))`,
		},
		{
			name: "spatial",
			spec: core.IndexSpec{Key: "geo", Type: schema.IndexSpatial, Columns: []string{"where"}},
			want: `CREATE INDEX "users_geo" ON "main"."users" USING GIN ("where")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, indexDDL("main", "users", tt.spec))
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"42P06", http.StatusConflict},
		{"42P07", http.StatusConflict},
		{"42701", http.StatusConflict},
		{"23505", http.StatusConflict},
		{"3F000", http.StatusNotFound},
		{"42P01", http.StatusNotFound},
		{"42703", http.StatusBadRequest},
		{"40001", http.StatusServiceUnavailable},
		{"53300", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := mapError(&pgconn.PgError{Code: tt.code, Message: "boom"})
			code, ok := core.StatusCode(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, code)
		})
	}

	plain := errors.New("connection reset")
	assert.Same(t, plain, mapError(plain))
	assert.NoError(t, mapError(nil))

	unknown := mapError(&pgconn.PgError{Code: "XX000"})
	_, ok := core.StatusCode(unknown)
	assert.False(t, ok)
}

func TestNotConnected(t *testing.T) {
	ctx := context.Background()
	b := New(nil)

	_, err := b.GetDatabase(ctx, "main")
	assert.ErrorContains(t, err, "not established")
	_, err = b.GetTable(ctx, "main", "users")
	assert.ErrorContains(t, err, "not established")
	assert.ErrorContains(t, b.Ping(ctx), "not established")
	assert.ErrorContains(t, b.CreateColumn(ctx, "main", "users", schema.Column{Key: "a", Kind: schema.KindBoolean}), "not established")
	assert.NoError(t, b.Close())
}

func TestGetDatabase(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery(q("FROM lazy_catalog.databases")).WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "enabled"}).AddRow("main", "Main", true))
	mock.ExpectQuery(q("FROM lazy_catalog.databases")).WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "enabled"}))

	db, err := b.GetDatabase(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, &core.Database{ID: "main", Name: "Main", Enabled: true}, db)

	_, err = b.GetDatabase(context.Background(), "gone")
	assert.True(t, core.IsNotFound(err))
}

func TestCreateDatabase_Conflict(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`CREATE SCHEMA "main"`)).WillReturnError(&pgconn.PgError{Code: "42P06", Message: "schema exists"})
	mock.ExpectRollback()

	_, err := b.CreateDatabase(context.Background(), "main", "Main")
	assert.True(t, core.IsConflict(err))
}

func TestCreateTable(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`CREATE TABLE "main"."users"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(`ALTER TABLE "main"."users" ENABLE ROW LEVEL SECURITY`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("INSERT INTO lazy_catalog.tables")).
		WithArgs("main", "users", "Users", `["read(\"any\")"]`, true, true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	table, err := b.CreateTable(context.Background(), "main", core.TableSpec{
		ID: "users", Name: "Users", Permissions: []string{`read("any")`}, RowSecurity: true,
	})
	require.NoError(t, err)
	assert.True(t, table.Enabled)
	assert.True(t, table.RowSecurity)
}

func TestGetTable(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery(q("FROM lazy_catalog.tables")).WithArgs("main", "users").
		WillReturnRows(sqlmock.NewRows([]string{"name", "permissions", "row_security", "enabled"}).
			AddRow("Users", []byte(`["read(\"any\")"]`), false, true))

	table, err := b.GetTable(context.Background(), "main", "users")
	require.NoError(t, err)
	assert.Equal(t, []string{`read("any")`}, table.Permissions)
	assert.Equal(t, "Users", table.Name)
}

func TestUpdateTable_TogglesRowSecurity(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery(q("FROM lazy_catalog.tables")).WithArgs("main", "users").
		WillReturnRows(sqlmock.NewRows([]string{"name", "permissions", "row_security", "enabled"}).
			AddRow("Users", []byte(`[]`), true, true))
	mock.ExpectBegin()
	mock.ExpectExec(q(`ALTER TABLE "main"."users" DISABLE ROW LEVEL SECURITY`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("UPDATE lazy_catalog.tables")).
		WithArgs("main", "users", "Users", `["read(\"any\")"]`, false, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	table, err := b.UpdateTable(context.Background(), "main", "users", core.TableUpdate{
		Name:        "Users",
		Permissions: []string{`read("any")`},
		RowSecurity: schema.Bool(false),
	})
	require.NoError(t, err)
	assert.False(t, table.RowSecurity)
}

func TestCreateColumn(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`ALTER TABLE "main"."users" ADD COLUMN "name" VARCHAR(32) NOT NULL`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("INSERT INTO lazy_catalog.columns")).
		WithArgs("main", "users", "name", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := b.CreateColumn(context.Background(), "main", "users", schema.Column{Key: "name", Kind: schema.KindString, Size: 32, Required: true})
	assert.NoError(t, err)
}

func TestCreateColumn_Conflict(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("ADD COLUMN")).WillReturnError(&pgconn.PgError{Code: "42701", Message: "column exists"})
	mock.ExpectRollback()

	err := b.CreateColumn(context.Background(), "main", "users", schema.Column{Key: "name", Kind: schema.KindBoolean})
	assert.True(t, core.IsConflict(err))
}

func TestListColumns(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery(q("FROM lazy_catalog.tables")).WithArgs("main", "users").
		WillReturnRows(sqlmock.NewRows([]string{"name", "permissions", "row_security", "enabled"}).
			AddRow("Users", []byte(`[]`), false, true))
	mock.ExpectQuery(q("FROM lazy_catalog.columns")).WithArgs("main", "users").
		WillReturnRows(sqlmock.NewRows([]string{"spec"}).
			AddRow([]byte(`{"key":"name","type":"string","size":32}`)).
			AddRow([]byte(`{"key":"role","type":"enum","elements":["a","b"]}`)))

	cols, err := b.ListColumns(context.Background(), "main", "users")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, core.StatusAvailable, cols[0].Status)
	assert.Equal(t, 32, cols[0].Size)
	assert.Equal(t, []string{"a", "b"}, cols[1].Elements)
}

func TestUpdateColumn_WidensString(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`ALTER TABLE "main"."users" ALTER COLUMN "name" TYPE VARCHAR(128)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("UPDATE lazy_catalog.columns")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := b.UpdateColumn(context.Background(), "main", "users", schema.Column{Key: "name", Kind: schema.KindString, Size: 128})
	assert.NoError(t, err)
}

func TestGetIndex(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectQuery(q("FROM lazy_catalog.indexes")).WithArgs("main", "users", "by_name").
		WillReturnRows(sqlmock.NewRows([]string{"key", "type", "columns", "orders"}).
			AddRow("by_name", "key", []byte(`["name"]`), []byte(`["ASC"]`)))

	idx, err := b.GetIndex(context.Background(), "main", "users", "by_name")
	require.NoError(t, err)
	assert.Equal(t, schema.IndexKey, idx.Type)
	assert.Equal(t, []string{"name"}, idx.Columns)
	assert.Equal(t, []string{"ASC"}, idx.Orders)
	assert.Equal(t, core.StatusAvailable, idx.Status)
}

func TestCreateIndex(t *testing.T) {
	b, mock := newMockBackend(t)
	mock.ExpectBegin()
	mock.ExpectExec(q(`CREATE INDEX "users_geo"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("INSERT INTO lazy_catalog.indexes")).
		WithArgs("main", "users", "geo", "spatial", `["where"]`, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := b.CreateIndex(context.Background(), "main", "users", core.IndexSpec{Key: "geo", Type: schema.IndexSpatial, Columns: []string{"where"}})
	assert.NoError(t, err)
}

func TestDeleteIndex(t *testing.T) {
	t.Run("drops", func(t *testing.T) {
		b, mock := newMockBackend(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("DELETE FROM lazy_catalog.indexes")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(`DROP INDEX IF EXISTS "main"."users_by_name"`)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		assert.NoError(t, b.DeleteIndex(context.Background(), "main", "users", "by_name"))
	})

	t.Run("missing", func(t *testing.T) {
		b, mock := newMockBackend(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("DELETE FROM lazy_catalog.indexes")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := b.DeleteIndex(context.Background(), "main", "users", "by_name")
		assert.True(t, core.IsNotFound(err))
	})
}

func TestRegistry(t *testing.T) {
	assert.True(t, backend.IsRegistered("postgres"))

	factory, ok := backend.Get("postgres")
	require.True(t, ok)

	pg, ok := factory(nil).(*Backend)
	require.True(t, ok)
	assert.False(t, pg.IsConnected())
}
