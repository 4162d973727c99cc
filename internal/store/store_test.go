package store

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/magpie-engine/magpie/internal/metadata"
)

func TestMemoryAddItemAssignsUniqueIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMemory()

	id1, err := m.AddItem(ctx, "first", metadata.New("u1"))
	require.NoError(t, err)
	id2, err := m.AddItem(ctx, "second", metadata.New("u2"))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	items := m.Items()
	require.Len(t, items, 2)
	require.Equal(t, "first", items[0].Text)
	require.Equal(t, "u1", items[0].Metadata.SourceURL)
}

func TestMemoryItemsSnapshotIsDetached(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	_, err := m.AddItem(context.Background(), "text", metadata.New("u"))
	require.NoError(t, err)

	snapshot := m.Items()
	snapshot[0].Text = "mutated"
	require.Equal(t, "text", m.Items()[0].Text)
}

func TestPostgresAddItemInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewPostgresWithPool(mock, "content_items")
	require.NoError(t, err)

	md := metadata.New("https://example.com/doc").Copy(
		metadata.Title("Doc"),
		metadata.MimeType("text/plain"),
	)

	mock.ExpectExec("INSERT INTO content_items").
		WithArgs(pgxmock.AnyArg(), md.SourceURL, md.Title, md.MimeType, "body text", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.AddItem(context.Background(), "body text", md)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRejectsInvalidTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPostgresWithPool(mock, "drop table --")
	require.Error(t, err)
}
