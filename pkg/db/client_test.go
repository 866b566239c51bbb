package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

type ledgerRow struct {
	ID   int
	Note string
}

func openClient(t *testing.T) *Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:dbclient_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&ledgerRow{}))
	return NewFromConn(conn)
}

func countRows(t *testing.T, c *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	c := openClient(t)

	require.NoError(t, c.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Note: "kept"}).Error
	}))
	require.EqualValues(t, 1, countRows(t, c))

	boom := errors.New("boom")
	err := c.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Note: "dropped"}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 1, countRows(t, c), "error must roll back")

	require.Panics(t, func() {
		_ = c.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&ledgerRow{Note: "doomed"}).Error)
			panic("boom")
		})
	})
	require.EqualValues(t, 1, countRows(t, c), "panic must roll back")
}

func TestPingAndClose(t *testing.T) {
	c := openClient(t)
	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
	require.Error(t, c.Ping(context.Background()))
}

func TestNewOpensSQLite(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})
	c, err := New(context.Background(), config.DBConfig{
		Driver:             config.DBDriverSQLite,
		DSN:                "file:dbnew_" + uuid.NewString() + "?mode=memory&cache=shared",
		SlowQueryThreshold: time.Second,
	}, logg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Ping(context.Background()))
	require.Contains(t, buf.String(), `"driver":"sqlite"`)

	_, err = New(context.Background(), config.DBConfig{}, logg)
	require.Error(t, err)
}
