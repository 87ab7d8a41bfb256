package article

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SergeyParamoshkin/feeds/internal/attachment"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func uploads(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, name := range names {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(pngData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(body, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["images"]
}

func newEditor(t *testing.T, repo Repository) (*Editor, string) {
	t.Helper()

	dir := t.TempDir()
	m, err := attachment.NewManager(dir, "uploads", nil)
	require.NoError(t, err)

	return NewEditor(repo, m), dir
}

func stored(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := []string{}
	for _, e := range entries {
		names = append(names, "uploads/"+e.Name())
	}

	return names
}

func draftWith(files []*multipart.FileHeader) Draft {
	return Draft{
		Title:       "Title",
		Description: "Description",
		Category:    model.Tech,
		Content:     "Content",
		Tags:        []string{"go"},
		Uploads:     files,
	}
}

func TestEditor_Create(t *testing.T) {
	f := newFixture(t)
	e, dir := newEditor(t, f.store)
	ctx := context.Background()

	a, err := e.Create(ctx, "author", draftWith(uploads(t, "a.png", "b.png")))
	require.NoError(t, err)
	assert.Len(t, a.Images, 2)
	assert.ElementsMatch(t, a.Images, stored(t, dir))
	assert.Equal(t, []string{"go"}, a.Tags)
	for _, ref := range a.Images {
		assert.True(t, strings.HasPrefix(ref, "uploads/"), ref)
	}

	_, err = e.Create(ctx, "author", draftWith(uploads(t, "a.png")))
	assert.Equal(t, model.KindInvalidArgument, model.KindOf(err))

	d := draftWith(uploads(t, "a.png", "b.png"))
	d.Category = "weather"
	_, err = e.Create(ctx, "author", d)
	assert.Equal(t, model.KindInvalidArgument, model.KindOf(err))

	_, err = e.Create(ctx, "", draftWith(uploads(t, "a.png", "b.png")))
	assert.Equal(t, model.KindUnauthorized, model.KindOf(err))

	assert.Len(t, stored(t, dir), 2)
}

func TestEditor_UpdateReconcilesImages(t *testing.T) {
	f := newFixture(t)
	e, dir := newEditor(t, f.store)
	ctx := context.Background()

	a, err := e.Create(ctx, "author", draftWith(uploads(t, "a.png", "b.png")))
	require.NoError(t, err)
	keep, drop := a.Images[0], a.Images[1]

	updated, err := e.Update(ctx, "author", a.ID, Draft{
		Title:          "Edited",
		ExistingImages: []string{keep},
		Uploads:        uploads(t, "c.png"),
	})
	require.NoError(t, err)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, keep, updated.Images[0])
	assert.NotEqual(t, drop, updated.Images[1])
	assert.Equal(t, "Edited", updated.Title)
	assert.Equal(t, "Description", updated.Description)
	assert.Equal(t, []string{"go"}, updated.Tags)

	assert.ElementsMatch(t, updated.Images, stored(t, dir))
}

func TestEditor_UpdateRejectsTooFewImages(t *testing.T) {
	f := newFixture(t)
	e, dir := newEditor(t, f.store)
	ctx := context.Background()

	a, err := e.Create(ctx, "author", draftWith(uploads(t, "a.png", "b.png")))
	require.NoError(t, err)

	tests := []struct {
		name string
		d    Draft
	}{
		{name: "nothing kept", d: Draft{}},
		{name: "one kept", d: Draft{ExistingImages: a.Images[:1]}},
		{name: "foreign refs", d: Draft{ExistingImages: []string{"uploads/other.png", "uploads/x.png"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Update(ctx, "author", a.ID, tt.d)
			assert.Equal(t, model.KindInvalidArgument, model.KindOf(err))

			got, err := f.store.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, a.Images, got.Images)
			assert.ElementsMatch(t, a.Images, stored(t, dir))
		})
	}
}

func TestEditor_Ownership(t *testing.T) {
	f := newFixture(t)
	e, dir := newEditor(t, f.store)
	ctx := context.Background()

	a, err := e.Create(ctx, "author", draftWith(uploads(t, "a.png", "b.png")))
	require.NoError(t, err)

	_, err = e.Update(ctx, "intruder", a.ID, Draft{ExistingImages: a.Images})
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	err = e.Delete(ctx, "intruder", a.ID)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))

	_, err = e.Update(ctx, "author", "missing", Draft{})
	assert.True(t, model.IsNotFound(err))

	assert.Len(t, stored(t, dir), 2)
}

func TestEditor_Delete(t *testing.T) {
	f := newFixture(t)
	e, dir := newEditor(t, f.store)
	ctx := context.Background()

	a, err := e.Create(ctx, "author", draftWith(uploads(t, "a.png", "b.png")))
	require.NoError(t, err)

	// A file already gone does not fail the delete.
	require.NoError(t, os.Remove(filepath.Join(dir, strings.TrimPrefix(a.Images[0], "uploads/"))))

	require.NoError(t, e.Delete(ctx, "author", a.ID))
	assert.Empty(t, stored(t, dir))

	_, err = f.store.Get(ctx, a.ID)
	assert.True(t, model.IsNotFound(err))

	err = e.Delete(ctx, "author", a.ID)
	assert.True(t, model.IsNotFound(err))
}

// failingUpdates lets creates through and fails every update.
type failingUpdates struct {
	Repository
}

func (failingUpdates) Update(ctx context.Context, a model.Article) (model.Article, error) {
	return model.Article{}, errors.New("disk full")
}

func TestEditor_UpdateFailureKeepsFiles(t *testing.T) {
	f := newFixture(t)
	e, dir := newEditor(t, failingUpdates{f.store})
	ctx := context.Background()

	a, err := e.Create(ctx, "author", draftWith(uploads(t, "a.png", "b.png")))
	require.NoError(t, err)

	_, err = e.Update(ctx, "author", a.ID, Draft{ExistingImages: a.Images[:1], Uploads: uploads(t, "c.png")})
	require.Error(t, err)
	assert.Equal(t, model.KindInternal, model.KindOf(err))

	// The new upload is rolled back and the removed image survives.
	assert.ElementsMatch(t, a.Images, stored(t, dir))
}
