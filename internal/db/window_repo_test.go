package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"astroweather/internal/types"
)

func TestWindowRepository_Create_FillsGeneratedID(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewWindowRepository(dbx)

	row := &mockRow{
		scanFn: func(dest ...any) error {
			*dest[0].(*int64) = 42
			return nil
		},
	}
	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	w := &types.ObservationWindow{
		Start:    time.Date(2026, 7, 14, 22, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 7, 15, 2, 0, 0, 0, time.UTC),
		Hours:    5,
		AvgScore: 84.2,
		MinScore: 78,
	}
	err := repo.Create(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, int64(42), w.ID)
}

func TestWindowRepository_ReplaceUpcoming_ClearsThenInserts(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewWindowRepository(dbx)

	dbx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 3"), nil).Once()
	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFn: func(dest ...any) error {
			*dest[0].(*int64) = 1
			return nil
		}}).Twice()

	windows := []types.ObservationWindow{
		{Start: time.Now(), End: time.Now().Add(2 * time.Hour), Hours: 3},
		{Start: time.Now().Add(24 * time.Hour), End: time.Now().Add(27 * time.Hour), Hours: 4},
	}
	err := repo.ReplaceUpcoming(context.Background(), time.Now(), windows)
	require.NoError(t, err)
	dbx.AssertExpectations(t)
}

func TestWindowRepository_ReplaceUpcoming_DeleteError(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewWindowRepository(dbx)

	dbx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("deadlock"))

	err := repo.ReplaceUpcoming(context.Background(), time.Now(), nil)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestWindowRepository_GetUnnotified_Success(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewWindowRepository(dbx)

	start := time.Date(2026, 7, 14, 22, 0, 0, 0, time.UTC)
	rows := newMockRows([][]any{
		{int64(7), start, start.Add(3 * time.Hour), 4, 86.5, 80, 1.1, 8.0, false, nil},
	})
	dbx.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(rows, nil)

	windows, err := repo.GetUnnotified(context.Background(), time.Now(), 70)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, int64(7), windows[0].ID)
	assert.Equal(t, 4, windows[0].Hours)
	assert.InDelta(t, 86.5, windows[0].AvgScore, 1e-9)
	assert.False(t, windows[0].Notified)
	assert.Nil(t, windows[0].NotificationSentAt)
}

func TestWindowRepository_MarkNotified_Success(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewWindowRepository(dbx)

	dbx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.MarkNotified(context.Background(), 7, time.Now())
	require.NoError(t, err)
	dbx.AssertExpectations(t)
}

func TestWindowRepository_MarkNotified_NotFound(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewWindowRepository(dbx)

	dbx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.MarkNotified(context.Background(), 999, time.Now())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundWindow, appErr.Code)
}
