package engine

import (
	"context"
	"testing"

	"github.com/Ghunter254/lazy-appwrite/pkg/backends/memory"
	"github.com/Ghunter254/lazy-appwrite/pkg/core"
	"github.com/Ghunter254/lazy-appwrite/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureTable_PermissionOrderIgnored(t *testing.T) {
	b := seededBackend(t, core.Table{Permissions: []string{`create("users")`, `read("any")`}, Enabled: true})
	s := newTestSyncer(t, b)

	require.NoError(t, s.EnsureTable(context.Background(), "main", usersTable()))
	assert.Zero(t, b.Calls(memory.OpUpdateTable))
}

func TestEnsureTable_PermissionDriftSingleUpdate(t *testing.T) {
	b := seededBackend(t, core.Table{Permissions: []string{`read("any")`, `delete("any")`}, Enabled: true})
	s := newTestSyncer(t, b)

	table := usersTable()
	table.RowSecurity = schema.Bool(true)
	require.NoError(t, s.EnsureTable(context.Background(), "main", table))

	assert.Equal(t, 1, b.Calls(memory.OpUpdateTable))
	assert.Zero(t, b.Calls(memory.OpCreateTable))
	got := b.Table("main", "users")
	assert.ElementsMatch(t, table.Permissions, got.Permissions)
	assert.True(t, got.RowSecurity)
	assert.Equal(t, "Users", got.Name)
}

func TestEnsureTable_Drift(t *testing.T) {
	tests := []struct {
		name       string
		remote     core.Table
		declare    func(*schema.Table)
		wantUpdate bool
	}{
		{
			name:   "nil permissions equal empty remote set",
			remote: core.Table{Enabled: true},
			declare: func(t *schema.Table) {
				t.Permissions = nil
			},
		},
		{
			name:   "nil permissions clear remote set",
			remote: core.Table{Permissions: []string{`read("any")`}, Enabled: true},
			declare: func(t *schema.Table) {
				t.Permissions = nil
			},
			wantUpdate: true,
		},
		{
			name:       "nil row security disables remote",
			remote:     core.Table{RowSecurity: true, Enabled: true},
			declare:    func(t *schema.Table) { t.Permissions = nil },
			wantUpdate: true,
		},
		{
			name:    "enabled ignored when undeclared",
			remote:  core.Table{Enabled: false},
			declare: func(t *schema.Table) { t.Permissions = nil },
		},
		{
			name:   "enabled compared when declared",
			remote: core.Table{Enabled: false},
			declare: func(t *schema.Table) {
				t.Permissions = nil
				t.Enabled = schema.Bool(true)
			},
			wantUpdate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := seededBackend(t, tt.remote)
			s := newTestSyncer(t, b)

			table := usersTable()
			tt.declare(&table)
			require.NoError(t, s.EnsureTable(context.Background(), "main", table))

			want := 0
			if tt.wantUpdate {
				want = 1
			}
			assert.Equal(t, want, b.Calls(memory.OpUpdateTable))
		})
	}
}

func TestEnsureTable_UndeclaredEnabledLeftAlone(t *testing.T) {
	b := seededBackend(t, core.Table{Permissions: []string{`read("any")`}, Enabled: false})
	s := newTestSyncer(t, b)

	table := usersTable()
	require.NoError(t, s.EnsureTable(context.Background(), "main", table))

	assert.Equal(t, 1, b.Calls(memory.OpUpdateTable))
	assert.False(t, b.Table("main", "users").Enabled)
}

func TestEnsureTable_CreateConflictIsSuccess(t *testing.T) {
	b := memory.New(nil)
	_, err := b.CreateDatabase(context.Background(), "main", "Main")
	require.NoError(t, err)
	b.FailNext(memory.OpCreateTable, core.Conflict("table exists"))
	s := newTestSyncer(t, b)

	assert.NoError(t, s.EnsureTable(context.Background(), "main", usersTable()))
}

func TestSameSet(t *testing.T) {
	assert.True(t, sameSet(nil, []string{}))
	assert.True(t, sameSet([]string{"a", "b"}, []string{"b", "a"}))
	assert.True(t, sameSet([]string{"a", "a"}, []string{"a"}))
	assert.False(t, sameSet([]string{"a"}, []string{"a", "b"}))
	assert.False(t, sameSet([]string{"a", "c"}, []string{"a", "b"}))
}
