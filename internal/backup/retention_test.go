package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func infos(names ...string) []Info {
	out := make([]Info, len(names))
	for i, n := range names {
		out[i] = Info{Path: n}
	}
	return out
}

func TestCountPolicy(t *testing.T) {
	backups := infos("c", "b", "a")
	assert.Equal(t, infos("c", "b"), CountPolicy{MaxCount: 2}.Apply(backups))
	assert.Equal(t, backups, CountPolicy{MaxCount: 5}.Apply(backups))
}

func TestAgePolicy(t *testing.T) {
	now := time.Date(2022, 12, 11, 0, 0, 0, 0, time.UTC)
	backups := []Info{
		{Path: "new", CreatedAt: now.Add(-time.Hour)},
		{Path: "old", CreatedAt: now.Add(-48 * time.Hour)},
	}
	p := AgePolicy{MaxAge: 24 * time.Hour, now: func() time.Time { return now }}
	kept := p.Apply(backups)
	require.Len(t, kept, 1)
	assert.Equal(t, "new", kept[0].Path)
}

func TestAnyPolicy(t *testing.T) {
	now := time.Now()
	backups := []Info{
		{Path: "c", CreatedAt: now.Add(-72 * time.Hour)},
		{Path: "b", CreatedAt: now.Add(-time.Hour)},
		{Path: "a", CreatedAt: now.Add(-96 * time.Hour)},
	}
	p := AnyPolicy{CountPolicy{MaxCount: 1}, AgePolicy{MaxAge: 24 * time.Hour}}
	kept := p.Apply(backups)
	require.Len(t, kept, 2)
	assert.Equal(t, "c", kept[0].Path)
	assert.Equal(t, "b", kept[1].Path)
}

func TestListAndApplyRetention(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)
	require.NoError(t, l.Record(ctx, testRun("run-a", 1)))

	dir := t.TempDir()
	names := []string{
		"keepaway-backup-20221209-050000.000.gz",
		"keepaway-backup-20221210-050000.000.gz",
		"keepaway-backup-20221211-050000.000.gz",
	}
	for _, name := range names {
		_, err := Write(ctx, l, filepath.Join(dir, name))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	backups, err := List(dir)
	require.NoError(t, err)
	require.Len(t, backups, 3)
	assert.Equal(t, names[2], filepath.Base(backups[0].Path))
	assert.Equal(t, 1, backups[0].RunCount)

	deleted, err := ApplyRetention(dir, CountPolicy{MaxCount: 1})
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	backups, err = List(dir)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, names[2], filepath.Base(backups[0].Path))

	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err, "non-backup files are left alone")
}

func TestList_MissingDir(t *testing.T) {
	backups, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, backups)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"720h", 720 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"", 0, true},
		{"d", 0, true},
		{"5y", 0, true},
		{"xd", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
