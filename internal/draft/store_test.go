package draft

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 27, 19, 14, 18, 615818000, time.UTC)

func createOpts() CreateOptions {
	return CreateOptions{
		Now:   func() time.Time { return fixedNow },
		NewID: func() string { return "E9B7A696-C9D1-4D8F-B444-972AE202972B" },
	}
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_FileIsNotAProject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := Open(path, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_ScaffoldsDefaultLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my_edit")

	s, err := Create(dir, createOpts())
	require.NoError(t, err)

	files, err := s.ListFiles()
	require.NoError(t, err)
	assert.ElementsMatch(t, DefaultFiles, files)

	folders, err := s.ListFolders()
	require.NoError(t, err)
	assert.ElementsMatch(t, DefaultFolders, folders)
}

func TestCreate_StampsMetaIdentity(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "my_edit")

	s, err := Create(dir, createOpts())
	require.NoError(t, err)

	var meta struct {
		DraftID       string `json:"draft_id"`
		DraftName     string `json:"draft_name"`
		DraftFoldPath string `json:"draft_fold_path"`
		DraftRootPath string `json:"draft_root_path"`
		Created       int64  `json:"tm_draft_create"`
		Modified      int64  `json:"tm_draft_modified"`
	}
	require.NoError(t, s.LoadInto(MetaFile, &meta))

	absRoot, _ := filepath.Abs(root)
	assert.Equal(t, "E9B7A696-C9D1-4D8F-B444-972AE202972B", meta.DraftID)
	assert.Equal(t, "my_edit", meta.DraftName)
	assert.Equal(t, filepath.Join(absRoot, "my_edit"), meta.DraftFoldPath)
	assert.Equal(t, absRoot, meta.DraftRootPath)
	assert.Equal(t, fixedNow.UnixMicro(), meta.Created)
	assert.Equal(t, meta.Created, meta.Modified)
}

func TestCreate_SoftPatchesIdentityKeys(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clip_project")

	s, err := Create(dir, createOpts())
	require.NoError(t, err)

	for _, name := range []string{ContentFile, ContentBackupFile, TemplateTmpFile, Template2TmpFile} {
		doc, err := s.Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, "clip_project", doc["name"], name)
		assert.Equal(t, "E9B7A696-C9D1-4D8F-B444-972AE202972B", doc["id"], name)
		assert.Equal(t, s.Dir(), doc["path"], name)
	}
}

func TestCreate_SoftPatchLeavesUnparsableFilesAlone(t *testing.T) {
	raw := "not json at all"
	tmpl := &Template{
		Files: []TemplateFile{
			{Name: MetaFile, JSON: map[string]any{"draft_id": ""}},
			{Name: TemplateTmpFile, Text: &raw},
			{Name: ContentFile, JSON: map[string]any{"tracks": []any{}}},
		},
	}
	opts := createOpts()
	opts.Template = tmpl

	s, err := Create(filepath.Join(t.TempDir(), "p"), opts)
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path(TemplateTmpFile))
	require.NoError(t, err)
	assert.Equal(t, raw, string(data))

	doc, err := s.Load(ContentFile)
	require.NoError(t, err)
	assert.NotContains(t, doc, "name")
	assert.NotContains(t, doc, "id")
}

func TestCreate_ExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()

	_, err := Create(dir, createOpts())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreate_OverwriteKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	extra := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(extra, []byte("keep"), 0o644))

	opts := createOpts()
	opts.Overwrite = true
	s, err := Create(dir, opts)
	require.NoError(t, err)

	assert.True(t, s.Exists(ContentFile))
	data, err := os.ReadFile(extra)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}

func TestSaveLoad_PreservesLargeNumbersAndUnknownKeys(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "p"), createOpts())
	require.NoError(t, err)

	in := Document{
		"tm_draft_create": int64(1748373258615818),
		"custom":          map[string]any{"nested": []any{"a", 1}},
	}
	require.NoError(t, s.Save("extra.json", in))

	doc, err := s.Load("extra.json")
	require.NoError(t, err)
	assert.Equal(t, json.Number("1748373258615818"), doc["tm_draft_create"])
	assert.Contains(t, doc, "custom")
}

func TestLoad_Errors(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "p"), createOpts())
	require.NoError(t, err)

	_, err = s.Load("absent.json")
	assert.ErrorIs(t, err, ErrUnreadable)

	require.NoError(t, os.WriteFile(s.Path("broken.json"), []byte("{"), 0o644))
	_, err = s.Load("broken.json")
	assert.ErrorIs(t, err, ErrMalformedInput)

	require.NoError(t, os.WriteFile(s.Path("array.json"), []byte("[1,2]"), 0o644))
	_, err = s.Load("array.json")
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestSave_Unwritable(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "p"), createOpts())
	require.NoError(t, err)

	err = s.Save(filepath.Join("no_such_dir", "x.json"), Document{})
	assert.ErrorIs(t, err, ErrUnwritable)
}

func TestSave_DoesNotEscapeHTML(t *testing.T) {
	s, err := Create(filepath.Join(t.TempDir(), "p"), createOpts())
	require.NoError(t, err)

	require.NoError(t, s.Save("x.json", Document{"path": "a&b<c>.mp4"}))
	data, err := os.ReadFile(s.Path("x.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "a&b<c>.mp4")
}
