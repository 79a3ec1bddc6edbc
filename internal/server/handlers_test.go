package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/manvithgkacharya/yt-download/internal/fetcher"
	"github.com/manvithgkacharya/yt-download/internal/manager"
	"github.com/manvithgkacharya/yt-download/internal/progress"
	"github.com/manvithgkacharya/yt-download/internal/resolver"
)

type fakeResolver struct {
	info *resolver.MediaInfo
	err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, url string) (*resolver.MediaInfo, error) {
	return f.info, f.err
}

type fakeFetcher struct {
	fetch func(ctx context.Context, req fetcher.Request) (string, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, req fetcher.Request) (string, error) {
	return f.fetch(ctx, req)
}

func newTestServer(t *testing.T, res manager.MetadataResolver, fet manager.MediaFetcher) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	store := progress.NewStore()
	mgr := manager.New(store, res, fet, dir, 0)
	ts := httptest.NewServer(New(":0", dir, mgr, res).Routes())
	t.Cleanup(ts.Close)
	return ts, dir
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestGetFormats(t *testing.T) {
	info := &resolver.MediaInfo{
		Title:     "Test Video",
		Thumbnail: "https://example.com/t.jpg",
		Duration:  120,
		Videos:    []resolver.VideoFormat{{ID: "137", Resolution: "1080", Size: "10.00 MB", Ext: "mp4"}},
		Audios:    []resolver.AudioFormat{{ID: "140", Bitrate: "130 kbps", Size: "3.00 MB", Ext: "m4a"}},
	}
	ts, _ := newTestServer(t, &fakeResolver{info: info}, &fakeFetcher{})

	resp := postJSON(t, ts.URL+"/get-formats", map[string]string{"url": "https://example.com/v"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["title"] != "Test Video" {
		t.Errorf("title = %v", body["title"])
	}
	videos := body["videos"].([]any)
	if len(videos) != 1 {
		t.Fatalf("videos = %v", videos)
	}
	v := videos[0].(map[string]any)
	if v["id"] != "137" || v["res"] != "1080" || v["size"] != "10.00 MB" {
		t.Errorf("video = %v", v)
	}
}

func TestGetFormatsMissingURL(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{}, &fakeFetcher{})
	resp := postJSON(t, ts.URL+"/get-formats", map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] == "" {
		t.Error("expected error message")
	}
}

func TestGetFormatsResolutionFailure(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{err: errors.New("extraction failed")}, &fakeFetcher{})
	resp := postJSON(t, ts.URL+"/get-formats", map[string]string{"url": "https://example.com/v"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDownloadLifecycle(t *testing.T) {
	fet := &fakeFetcher{fetch: func(ctx context.Context, req fetcher.Request) (string, error) {
		req.OnProgress(100, 100)
		return "downloads/Test Video-137.mp4", nil
	}}
	ts, _ := newTestServer(t, &fakeResolver{info: &resolver.MediaInfo{Title: "Test Video"}}, fet)

	resp := postJSON(t, ts.URL+"/download", map[string]string{"url": "https://example.com/v", "format_id": "137"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	jobID, _ := body["download_id"].(string)
	if jobID == "" {
		t.Fatalf("missing download_id in %v", body)
	}
	if body["title"] != "Test Video" {
		t.Errorf("title = %v", body["title"])
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(ts.URL + "/progress/" + jobID)
		if err != nil {
			t.Fatal(err)
		}
		state := decodeBody(t, resp)
		if state["status"] == "finished" {
			if state["filename"] != "Test%20Video-137.mp4" {
				t.Fatalf("filename = %v", state["filename"])
			}
			break
		}
		if state["status"] == "failed" {
			t.Fatalf("job failed: %v", state["error"])
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never finished, last state %v", state)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDownloadMissingParams(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{info: &resolver.MediaInfo{Title: "x"}}, &fakeFetcher{})
	for _, body := range []map[string]string{
		{},
		{"url": "https://example.com/v"},
		{"format_id": "137"},
	} {
		resp := postJSON(t, ts.URL+"/download", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestProgressUnknownID(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{}, &fakeFetcher{})
	resp, err := http.Get(ts.URL + "/progress/never-created")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "unknown" {
		t.Fatalf("status field = %v, want unknown", body["status"])
	}
}

func TestDownloadFileDeliveredOnce(t *testing.T) {
	ts, dir := newTestServer(t, &fakeResolver{}, &fakeFetcher{})
	content := bytes.Repeat([]byte("media"), 1000)
	if err := os.WriteFile(filepath.Join(dir, "Test Video-137.mp4"), content, 0644); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/download-file/Test%20Video-137.mp4")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("delivered %d bytes, want %d", len(got), len(content))
	}

	// the artifact is single-use
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(dir, "Test Video-137.mp4")); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("artifact was not removed after delivery")
		}
		time.Sleep(10 * time.Millisecond)
	}
	resp2, err := http.Get(ts.URL + "/download-file/Test%20Video-137.mp4")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("second delivery status = %d, want 404", resp2.StatusCode)
	}
}

func TestDownloadFileRejectsTraversal(t *testing.T) {
	ts, dir := newTestServer(t, &fakeResolver{}, &fakeFetcher{})
	// a file outside the downloads dir that must stay unreachable
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(outside)

	for _, path := range []string{
		"/download-file/..%2Fsecret.txt",
		"/download-file/..%2F..%2Fsecret.txt",
		"/download-file/%2e%2e%2fsecret.txt",
		"/download-file/..secret..",
	} {
		req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, resp.StatusCode)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatal("outside file must not be touched")
	}
}

func TestDownloadFileMissing(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{}, &fakeFetcher{})
	resp, err := http.Get(ts.URL + "/download-file/nope.mp4")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDownloadFileLeavesDirectoriesAlone(t *testing.T) {
	ts, dir := newTestServer(t, &fakeResolver{}, &fakeFetcher{})
	if err := os.Mkdir(filepath.Join(dir, "partial"), 0755); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/download-file/partial")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if _, err := os.Stat(filepath.Join(dir, "partial")); err != nil {
		t.Fatalf("directory was removed: %v", err)
	}
}

func TestIndexServed(t *testing.T) {
	ts, _ := newTestServer(t, &fakeResolver{}, &fakeFetcher{})
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("yt-download")) {
		t.Error("index page missing expected content")
	}
}
