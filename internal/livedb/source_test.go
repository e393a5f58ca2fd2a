package livedb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRow struct {
	val string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *string:
		*d = r.val
	case *int:
		*d = 1
	}
	return nil
}

type fakeTx struct {
	pgx.Tx
	row        fakeRow
	query      string
	rolledBack bool
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	t.query = sql
	return t.row
}

func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeDB struct {
	tx       *fakeTx
	beginErr error
	opts     pgx.TxOptions
	began    bool
	row      fakeRow
}

func (d *fakeDB) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	d.began = true
	d.opts = opts
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return d.tx, nil
}

func (d *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return d.row
}

func TestFetchPlan_NonSelectSkipsDatabase(t *testing.T) {
	db := &fakeDB{}
	src := &Source{db: db}

	for _, sql := range []string{
		"UPDATE users SET active = false",
		"with x as (select 1) select * from x",
		"DELETE FROM t",
		"",
	} {
		_, err := src.FetchPlan(context.Background(), sql)
		assert.ErrorIs(t, err, ErrNotSelect, sql)
	}
	assert.False(t, db.began, "non-SELECT must not open a transaction")
}

func TestFetchPlan_ReadOnlyAndRolledBack(t *testing.T) {
	tx := &fakeTx{row: fakeRow{val: `[{"Plan":{"Node Type":"Result"}}]`}}
	db := &fakeDB{tx: tx}
	src := &Source{db: db}

	out, err := src.FetchPlan(context.Background(), "  select 1")
	require.NoError(t, err)

	assert.Equal(t, pgx.ReadOnly, db.opts.AccessMode)
	assert.True(t, tx.rolledBack)
	assert.Equal(t, explainPrefix+"  select 1", tx.query)
	assert.Contains(t, out, "\n")
	assert.True(t, strings.Contains(out, `"Node Type": "Result"`), out)
}

func TestFetchPlan_QueryErrorStillRollsBack(t *testing.T) {
	tx := &fakeTx{row: fakeRow{err: errors.New("relation \"nope\" does not exist")}}
	src := &Source{db: &fakeDB{tx: tx}}

	_, err := src.FetchPlan(context.Background(), "SELECT * FROM nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing EXPLAIN")
	assert.True(t, tx.rolledBack)
}

func TestFetchPlan_BeginError(t *testing.T) {
	src := &Source{db: &fakeDB{beginErr: errors.New("connection refused")}}

	_, err := src.FetchPlan(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPing(t *testing.T) {
	assert.NoError(t, (&Source{db: &fakeDB{}}).Ping(context.Background()))

	err := (&Source{db: &fakeDB{row: fakeRow{err: errors.New("timeout")}}}).Ping(context.Background())
	assert.Error(t, err)
}

func TestConnConfigURL(t *testing.T) {
	cfg := ConnConfig{Host: "db.local", Database: "erp", User: "app", Password: "p@ss/word"}

	u := cfg.URL(5 * time.Second)
	assert.True(t, strings.HasPrefix(u, "postgres://app:"), u)
	assert.Contains(t, u, "@db.local:5432/erp")
	assert.Contains(t, u, "connect_timeout=5")
	assert.NotContains(t, u, "p@ss/word")
}

func TestManager_EvictUnknownAndClose(t *testing.T) {
	m := NewManager(Options{}, zap.NewNop())
	m.Evict(42)
	m.Close()
	assert.Equal(t, 0, m.Len())
}
