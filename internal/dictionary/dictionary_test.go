package dictionary

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/jusunglee/hanjahangul/internal/db/sqlite"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTables() fstest.MapFS {
	return fstest.MapFS{
		"hanja.txt":     {Data: []byte("李,리\n女,녀\n子,자\n")},
		"dueum.txt":     {Data: []byte("리,이\n녀,여\n")},
		"irregular.txt": {Data: []byte("女子,여자\n")},
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		in      string
		want    Source
		wantErr bool
	}{
		{"", Source{Kind: KindEmbed}, false},
		{"embed", Source{Kind: KindEmbed}, false},
		{"db", Source{Kind: KindDB}, false},
		{"dir:/srv/tables", Source{Kind: KindDir, Dir: "/srv/tables"}, false},
		{"dir:", Source{}, true},
		{"s3://bucket", Source{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSource(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "dir:/srv/tables", Source{Kind: KindDir, Dir: "/srv/tables"}.String())
}

func TestOpenEmbed(t *testing.T) {
	d, err := Open(context.Background(), Source{Kind: KindEmbed}, nil, hanja.EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "대한민국", d.Convert("大韓民國").Or(""))
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	for name, f := range testTables() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), f.Data, 0o644))
	}

	d, err := Open(context.Background(), Source{Kind: KindDir, Dir: dir}, nil, hanja.EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "여자", d.Convert("女子").Or(""))
	assert.Equal(t, "이", d.Convert("李").Or(""))
}

func TestOpenDirMissing(t *testing.T) {
	_, err := Open(context.Background(), Source{Kind: KindDir, Dir: t.TempDir()}, nil, hanja.EncodingUTF8)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenDBWithoutRepository(t *testing.T) {
	_, err := Open(context.Background(), Source{Kind: KindDB}, nil, hanja.EncodingUTF8)
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestImportThenOpenDB(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	_, err = Open(ctx, Source{Kind: KindDB}, repo, hanja.EncodingUTF8)
	assert.ErrorIs(t, err, ErrEmpty)

	written, err := Import(ctx, repo, testTables(), hanja.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), written[hanja.TableChars])
	assert.Equal(t, int64(2), written[hanja.TableInitials])
	assert.Equal(t, int64(1), written[hanja.TableWords])

	d, err := Open(ctx, Source{Kind: KindDB}, repo, hanja.EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, hanja.Stats{Chars: 3, Initials: 2, Words: 1}, d.Stats())
	assert.Equal(t, "여자", d.Convert("女子").Or(""))
	assert.Equal(t, "이자", d.Convert("李子").Or(""))
}

func TestImportMissingTableLeavesRepositoryUntouched(t *testing.T) {
	ctx := context.Background()
	repo, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	defer repo.Close()

	_, err = Import(ctx, repo, testTables(), hanja.LoadOptions{})
	require.NoError(t, err)

	partial := testTables()
	delete(partial, "irregular.txt")
	_, err = Import(ctx, repo, partial, hanja.LoadOptions{})
	assert.ErrorIs(t, err, fs.ErrNotExist)

	n, err := repo.CountDictionaryEntries(ctx, string(hanja.TableWords))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReadTablesSubdir(t *testing.T) {
	fsys := fstest.MapFS{}
	for name, f := range testTables() {
		fsys["tables/"+name] = f
	}
	tables, err := ReadTables(context.Background(), fsys, hanja.LoadOptions{Dir: "tables"})
	require.NoError(t, err)
	assert.Len(t, tables[hanja.TableChars], 3)
	assert.Equal(t, hanja.Entry{Key: "女子", Value: "여자"}, tables[hanja.TableWords][0])
}

func TestReadTablesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tables, err := ReadTables(ctx, testTables(), hanja.LoadOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, tables)
}
