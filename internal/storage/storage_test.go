package storage

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStorage_WriteRead(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read("data.json")
	require.True(t, errors.Is(err, fs.ErrNotExist))

	require.NoError(t, s.Write("data.json", []byte(`{"a":1}`)))
	require.NoError(t, s.Write("data.json", []byte(`{"a":2}`)))

	got, err := s.Read("data.json")
	require.NoError(t, err)
	require.Equal(t, `{"a":2}`, string(got))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStorage_Append(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Append("audit.log", []byte("one\n")))
	require.NoError(t, s.Append("audit.log", []byte("two\n")))

	got, err := s.Read("audit.log")
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", string(got))
}

func TestFileStorage_RejectsEscapingKeys(t *testing.T) {
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../x", "a/b"} {
		require.ErrorIs(t, s.Write(key, nil), ErrInvalidKey, "key %q", key)
	}
}

type recordingReplicator struct {
	mu       sync.Mutex
	datasets [][]byte
	audits   [][]byte
}

func (r *recordingReplicator) ReplicateDataset(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets = append(r.datasets, data)
}

func (r *recordingReplicator) ReplicateAudit(lines []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, lines)
}

func TestReplicatingStorage_SchedulesOnlyReplicatedKeys(t *testing.T) {
	base, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	rep := &recordingReplicator{}
	s := Wrap(base, "data.json", "audit.log", rep)

	require.NoError(t, s.Write("data.json", []byte("v1")))
	require.NoError(t, s.Write("data.json.corrupt.1", []byte("junk")))
	require.NoError(t, s.Append("audit.log", []byte("line\n")))
	require.NoError(t, s.Append("other.log", []byte("ignored\n")))

	require.Equal(t, [][]byte{[]byte("v1")}, rep.datasets)
	require.Equal(t, [][]byte{[]byte("line\n")}, rep.audits)
}

type failingStorage struct{ Storage }

func (failingStorage) Write(string, []byte) error  { return errors.New("disk full") }
func (failingStorage) Append(string, []byte) error { return errors.New("disk full") }

func TestReplicatingStorage_FailedWriteIsNotReplicated(t *testing.T) {
	rep := &recordingReplicator{}
	s := Wrap(failingStorage{}, "data.json", "audit.log", rep)

	require.Error(t, s.Write("data.json", []byte("v1")))
	require.Error(t, s.Append("audit.log", []byte("x\n")))
	require.Empty(t, rep.datasets)
	require.Empty(t, rep.audits)
}

func TestWrap_IsIdempotent(t *testing.T) {
	base, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	rep := &recordingReplicator{}

	once := Wrap(base, "data.json", "audit.log", rep)
	twice := Wrap(once, "data.json", "audit.log", rep)
	require.Same(t, once, twice)

	require.NoError(t, twice.Write("data.json", []byte("v1")))
	require.Len(t, rep.datasets, 1)
	require.Same(t, base, once.(*ReplicatingStorage).Unwrap())
}
