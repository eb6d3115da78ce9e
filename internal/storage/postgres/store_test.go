package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/shopverse/internal/errs"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestStore_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db, "kiosk")
	ctx := context.Background()

	mock.ExpectQuery(`SELECT value FROM device_storage WHERE namespace=\$1 AND key=\$2`).
		WithArgs("kiosk", "adminToken").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("tok"))
	v, err := s.Get(ctx, "adminToken")
	require.NoError(t, err)
	require.Equal(t, "tok", v)

	mock.ExpectQuery(`SELECT value FROM device_storage WHERE namespace=\$1 AND key=\$2`).
		WithArgs("kiosk", "sellerToken").
		WillReturnError(pgx.ErrNoRows)
	_, err = s.Get(ctx, "sellerToken")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(`SELECT value FROM device_storage WHERE namespace=\$1 AND key=\$2`).
		WithArgs("kiosk", "x").
		WillReturnError(errors.New("conn reset"))
	_, err = s.Get(ctx, "x")
	require.EqualError(t, err, "conn reset")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetAndRemove(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	s := NewStore(db, "")
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO device_storage \(namespace, key, value, updated_at\) VALUES \(\$1, \$2, \$3, now\(\)\) ON CONFLICT \(namespace, key\) DO UPDATE SET value = EXCLUDED.value, updated_at = now\(\)`).
		WithArgs("default", "shopverseCart", "[]").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.Set(ctx, "shopverseCart", "[]"))

	mock.ExpectExec(`DELETE FROM device_storage WHERE namespace=\$1 AND key=\$2`).
		WithArgs("default", "shopverseCart").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.Remove(ctx, "shopverseCart"))

	mock.ExpectExec(`DELETE FROM device_storage`).
		WithArgs("default", "gone").
		WillReturnError(errors.New("boom"))
	require.Error(t, s.Remove(ctx, "gone"))

	require.NoError(t, mock.ExpectationsWereMet())
}
