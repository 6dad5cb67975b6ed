package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChannelRepoMock(t *testing.T) (*PostgresChannelRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresChannelRepository(db), mock
}

func TestTitlesByIDsResolvesInOneQuery(t *testing.T) {
	repo, mock := newChannelRepoMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1)")).
		WithArgs(pq.Array([]int64{10, 11, 12})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel_title"}).
			AddRow(10, "First").
			AddRow(12, "Third"))

	titles, err := repo.TitlesByIDs(context.Background(), []int64{10, 11, 12})

	require.NoError(t, err)
	assert.Equal(t, map[int64]string{10: "First", 12: "Third"}, titles)
	// Vanished channel 11 is simply absent.
	_, ok := titles[11]
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTitlesByIDsEmptyInputSkipsQuery(t *testing.T) {
	repo, mock := newChannelRepoMock(t)

	titles, err := repo.TitlesByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, titles)
	assert.NoError(t, mock.ExpectationsWereMet())
}
