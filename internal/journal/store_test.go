package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"intercept/internal/dispatch"
	"intercept/internal/editor"
	"intercept/internal/intent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleIntent() *intent.Intent {
	in := intent.New(intent.ActionView)
	in.AddCategory(intent.CategoryDefault)
	in.PutExtra("foo", intent.StringValue("bar"))
	in.PutExtra("ids", intent.ListValue(intent.IntValue(1), intent.IntValue(2)))
	return in
}

func TestRecordIntercept_KeepsExtras(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.RecordIntercept(ctx, sampleIntent(), "adb", "env-1")
	require.NoError(t, err)

	entry, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "env-1", entry.EnvelopeID)
	assert.Equal(t, "adb", entry.Source)
	assert.Equal(t, rec.URI, entry.URI)
	assert.Empty(t, entry.Dispatches)
	assert.Empty(t, entry.Results)

	in, err := entry.Intent()
	require.NoError(t, err)
	assert.Equal(t, intent.ActionView, in.Action)
	assert.Equal(t, "bar", in.Extras["foo"].Str())
	require.Len(t, in.Extras["ids"].Items(), 2)
}

func TestDispatchAndResult(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec, err := s.RecordIntercept(ctx, sampleIntent(), "", "")
	require.NoError(t, err)

	edited := sampleIntent()
	edited.Action = intent.ActionSend
	receipt := &dispatch.Receipt{ID: "receipt-1", Target: "outbox", Command: "/tmp/out/receipt-1.json", SentAt: time.Now()}
	d, err := s.RecordDispatch(ctx, rec.ID, edited, receipt, nil)
	require.NoError(t, err)
	assert.Equal(t, "receipt-1", d.ID)

	_, err = s.RecordDispatch(ctx, rec.ID, edited, nil, errors.New("adb: no devices"))
	require.NoError(t, err)

	reply := intent.New("")
	reply.Data = "content://contacts/1"
	reply.PutExtra("picked", intent.BoolValue(true))
	_, err = s.RecordResult(ctx, rec.ID, d.ID, editor.Result{Code: editor.ResultOK, Intent: reply})
	require.NoError(t, err)
	_, err = s.RecordResult(ctx, rec.ID, "", editor.Result{Code: editor.ResultCanceled})
	require.NoError(t, err)

	entry, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, entry.Dispatches, 2)
	assert.Equal(t, "outbox", entry.Dispatches[0].Target)
	assert.Contains(t, entry.Dispatches[0].URI, "action=android.intent.action.SEND")
	assert.Equal(t, "unknown", entry.Dispatches[1].Target)
	assert.Equal(t, "adb: no devices", entry.Dispatches[1].Error)

	require.Len(t, entry.Results, 2)
	assert.Equal(t, editor.ResultOK, entry.Results[0].Code)
	assert.Equal(t, "receipt-1", entry.Results[0].DispatchID)
	got, err := entry.Results[0].Intent()
	require.NoError(t, err)
	assert.Equal(t, "content://contacts/1", got.Data)
	assert.True(t, got.Extras["picked"].Bool())

	none, err := entry.Results[1].Intent()
	require.NoError(t, err)
	assert.Nil(t, none)

	found, err := s.FindDispatch(ctx, "receipt-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.InterceptID)
}

func TestDispatch_RequiresIntercept(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RecordDispatch(context.Background(), "missing", intent.New("a"), nil, nil)
	assert.Error(t, err)
}

func TestRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, action := range []string{"first", "second", "third"} {
		rec, err := s.RecordIntercept(ctx, intent.New(action), "", "")
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.FindDispatch(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	rec, err := s.RecordIntercept(context.Background(), intent.New("kept"), "", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	entry, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Contains(t, entry.URI, "action=kept")
}
