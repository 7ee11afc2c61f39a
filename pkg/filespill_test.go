package pkg

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type spillRecord struct {
	Name  string
	Child *spillChild
	Count int
}

type spillChild struct {
	ID int64
}

func TestFileSpill(t *testing.T) {
	t.Run("creates the backing file in dir", func(t *testing.T) {
		dir := t.TempDir()

		spill, err := NewFileSpill[int](dir)
		require.NoError(t, err)
		defer spill.Close()

		require.FileExists(t, spill.Path())
		require.Contains(t, spill.Path(), dir)
	})

	t.Run("Len counts appended items", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		require.Equal(t, uint64(0), spill.Len())

		require.NoError(t, spill.Append(1))
		require.NoError(t, spill.AppendBatch([]int{2, 3}))
		require.Equal(t, uint64(3), spill.Len())
	})

	t.Run("Range iterates in append order", func(t *testing.T) {
		spill, err := NewFileSpill[string](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		require.NoError(t, spill.AppendBatch([]string{"a", "", "c"}))

		var got []string
		var indexes []uint64

		err = spill.Range(func(index uint64, item string) error {
			indexes = append(indexes, index)
			got = append(got, item)

			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "", "c"}, got)
		require.Equal(t, []uint64{0, 1, 2}, indexes)
	})

	t.Run("Range does not leak fields between items", func(t *testing.T) {
		spill, err := NewFileSpill[spillRecord](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		require.NoError(t, spill.Append(spillRecord{Name: "with", Child: &spillChild{ID: 7}, Count: 3}))
		require.NoError(t, spill.Append(spillRecord{Name: "without"}))

		var got []spillRecord

		require.NoError(t, spill.Range(func(_ uint64, item spillRecord) error {
			got = append(got, item)
			return nil
		}))

		require.Len(t, got, 2)
		require.Equal(t, int64(7), got[0].Child.ID)
		require.Nil(t, got[1].Child)
		require.Zero(t, got[1].Count)
	})

	t.Run("Range stops on callback error", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)
		defer spill.Close()

		require.NoError(t, spill.AppendBatch([]int{1, 2, 3}))

		stop := errors.New("stop")
		calls := 0

		err = spill.Range(func(_ uint64, _ int) error {
			calls++
			return stop
		})
		require.ErrorIs(t, err, stop)
		require.Equal(t, 1, calls)
	})

	t.Run("Close removes the file and is idempotent", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)

		require.NoError(t, spill.Append(1))
		require.NoError(t, spill.Close())
		require.NoError(t, spill.Close())

		_, err = os.Stat(spill.Path())
		require.True(t, os.IsNotExist(err))

		require.Error(t, spill.Append(2))
		require.Error(t, spill.Range(func(uint64, int) error { return nil }))
	})
}
