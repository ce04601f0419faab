package album

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurdl/pkg/config"
	errs "imgurdl/pkg/errors"
	"imgurdl/pkg/imgur"
)

// recordingObserver captures every event an album run emits
type recordingObserver struct {
	mu       sync.Mutex
	images   []imageEvent
	complete []int
}

type imageEvent struct {
	index, total int
	id           string
	failed       bool
}

func (r *recordingObserver) OnImage(index, total int, id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = append(r.images, imageEvent{index: index, total: total, id: id, failed: err != nil})
}

func (r *recordingObserver) OnComplete(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = append(r.complete, total)
}

// newAlbumServer serves an album page at /a/<key> whose embedded data lists
// the given ids, and the images themselves at /i/<id>.jpg. Ids present in
// failIDs get a 404.
func newAlbumServer(t *testing.T, key string, ids []string, failIDs map[string]bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/a/"+key, func(w http.ResponseWriter, r *http.Request) {
		page := "<html><script>"
		for _, id := range ids {
			page += fmt.Sprintf(`{"hash":"%s","title":"","ext":".jpg"},`, id)
		}
		page += "</script></html>"
		w.Write([]byte(page))
	})
	mux.HandleFunc("/i/", func(w http.ResponseWriter, r *http.Request) {
		id := filepath.Base(r.URL.Path)
		id = id[:len(id)-len(filepath.Ext(id))]
		if failIDs[id] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("image data for " + id))
	})

	return httptest.NewServer(mux)
}

func testConfig(t *testing.T, imageBaseURL string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	cfg.Imgur.ImageBaseURL = imageBaseURL
	return cfg
}

func TestRunDownloadsWholeAlbum(t *testing.T) {
	ids := []string{"fGWX0", "aB3dE", "Zz9Yx"}
	server := newAlbumServer(t, "abc123", ids, nil)
	defer server.Close()

	cfg := testConfig(t, server.URL+"/i")
	d := New(cfg, imgur.NewClient(cfg, nil), nil, nil)

	obs := &recordingObserver{}
	d.SetObserver(obs)

	report, err := d.Run(context.Background(), server.URL+"/a/abc123", "")
	require.NoError(t, err)

	assert.Equal(t, "abc123", report.Key)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Saved)
	assert.Empty(t, report.Failed)
	assert.Equal(t, map[string]int{".jpg": 3}, report.Extensions)

	// Folder derives from the trailing path segment of the URL
	assert.Equal(t, filepath.Join(cfg.Output.BaseDirectory, "abc123"), report.Folder)

	// One file per image, named from the identifier
	for i, id := range ids {
		path := filepath.Join(report.Folder, fmt.Sprintf("%s_%02d.jpg", id, i+1))
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "image data for "+id, string(content))
	}

	// Observer saw every image in order, then one completion
	require.Len(t, obs.images, 3)
	for i, ev := range obs.images {
		assert.Equal(t, i+1, ev.index)
		assert.Equal(t, 3, ev.total)
		assert.Equal(t, ids[i], ev.id)
		assert.False(t, ev.failed)
	}
	assert.Equal(t, []int{3}, obs.complete)
}

func TestRunContinuesAfterSingleImageFailure(t *testing.T) {
	ids := []string{"first", "broke", "third"}
	server := newAlbumServer(t, "abc123", ids, map[string]bool{"broke": true})
	defer server.Close()

	cfg := testConfig(t, server.URL+"/i")
	d := New(cfg, imgur.NewClient(cfg, nil), nil, nil)

	obs := &recordingObserver{}
	d.SetObserver(obs)

	report, err := d.Run(context.Background(), server.URL+"/a/abc123", "")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Saved)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "broke", report.Failed[0].ID)

	var typed *errs.Error
	require.ErrorAs(t, report.Failed[0].Err, &typed)
	assert.Equal(t, errs.ErrorTypeImageDownload, typed.Type)

	// Images after the failure were still attempted and saved
	_, err = os.Stat(filepath.Join(report.Folder, "third_03.jpg"))
	assert.NoError(t, err)

	require.Len(t, obs.images, 3)
	assert.True(t, obs.images[1].failed)
	assert.False(t, obs.images[2].failed)
	assert.Equal(t, []int{3}, obs.complete)
}

func TestRunEmptyAlbum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>layout changed, nothing embedded</body></html>"))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL+"/i")
	d := New(cfg, imgur.NewClient(cfg, nil), nil, nil)

	obs := &recordingObserver{}
	d.SetObserver(obs)

	report, err := d.Run(context.Background(), server.URL+"/a/empty1", "")
	require.Error(t, err)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeExtractionEmpty, typed.Type)
	assert.False(t, errs.IsFatal(typed.Type))

	require.NotNil(t, report)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0, report.Saved)

	// Zero writes, completion callback with count 0
	entries, readErr := os.ReadDir(report.Folder)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
	assert.Empty(t, obs.images)
	assert.Equal(t, []int{0}, obs.complete)
}

func TestRunUnfetchablePageIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL+"/i")
	d := New(cfg, imgur.NewClient(cfg, nil), nil, nil)

	report, err := d.Run(context.Background(), server.URL+"/a/gone99", "")
	require.Error(t, err)
	assert.Nil(t, report)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeFetch, typed.Type)
	assert.True(t, errs.IsFatal(typed.Type))
}

func TestRunIsIdempotentOverPopulatedFolder(t *testing.T) {
	ids := []string{"fGWX0", "aB3dE"}
	server := newAlbumServer(t, "abc123", ids, nil)
	defer server.Close()

	cfg := testConfig(t, server.URL+"/i")
	d := New(cfg, imgur.NewClient(cfg, nil), nil, nil)

	first, err := d.Run(context.Background(), server.URL+"/a/abc123", "")
	require.NoError(t, err)
	require.Equal(t, 2, first.Saved)

	second, err := d.Run(context.Background(), server.URL+"/a/abc123", "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Saved)
	assert.Empty(t, second.Failed)
}

func TestRunSkipsExistingWhenOverwriteOff(t *testing.T) {
	ids := []string{"fGWX0", "aB3dE"}
	server := newAlbumServer(t, "abc123", ids, nil)
	defer server.Close()

	cfg := testConfig(t, server.URL+"/i")
	cfg.Output.OverwriteExisting = false
	d := New(cfg, imgur.NewClient(cfg, nil), nil, nil)

	folder := filepath.Join(cfg.Output.BaseDirectory, "abc123")
	require.NoError(t, os.MkdirAll(folder, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "fGWX0_01.jpg"), []byte("already here"), 0644))

	report, err := d.Run(context.Background(), server.URL+"/a/abc123", "")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Saved)

	content, err := os.ReadFile(filepath.Join(folder, "fGWX0_01.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "already here", string(content))
}

func TestRunExplicitFolderArgument(t *testing.T) {
	ids := []string{"fGWX0"}
	server := newAlbumServer(t, "abc123", ids, nil)
	defer server.Close()

	cfg := testConfig(t, server.URL+"/i")
	d := New(cfg, imgur.NewClient(cfg, nil), nil, nil)

	target := filepath.Join(t.TempDir(), "my-pictures")
	report, err := d.Run(context.Background(), server.URL+"/a/abc123", target)
	require.NoError(t, err)

	assert.Equal(t, target, report.Folder)
	_, err = os.Stat(filepath.Join(target, "fGWX0_01.jpg"))
	assert.NoError(t, err)
}

func TestRunInvalidURL(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	d := New(cfg, imgur.NewClient(cfg, nil), nil, nil)

	_, err := d.Run(context.Background(), "ftp://example.com/a/abc123", "")
	require.Error(t, err)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeFetch, typed.Type)
}
