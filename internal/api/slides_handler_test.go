package api

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slidex/slidex-agent/internal/slides"
)

func writeVideo(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "lecture.mp4")
	if err := os.WriteFile(p, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeJPEG(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

func countJobs(t *testing.T, env *testEnv) int {
	t.Helper()
	list, err := env.repo.ListJobs(context.Background(), 100)
	if err != nil {
		t.Fatal(err)
	}
	return len(list)
}

func TestExtract_Accepted(t *testing.T) {
	env := setupTestEnv(t)
	video := writeVideo(t)

	rr := env.do(t, http.MethodPost, "/extract", map[string]any{"video_path": video, "threshold": 0.35})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status code = %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}

	var resp ExtractResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.JobID == "" || resp.SessionID == "" {
		t.Errorf("response = %+v", resp)
	}
	if want := filepath.Join(filepath.Dir(video), "lecture_slides"); resp.OutputDir != want {
		t.Errorf("output_dir = %s, want %s", resp.OutputDir, want)
	}

	session, _ := env.repo.GetSession(context.Background(), resp.SessionID)
	if session == nil || session.Threshold != 0.35 {
		t.Errorf("session = %+v", session)
	}
}

func TestExtract_TimestampString(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, http.MethodPost, "/extract", map[string]any{
		"video_path": writeVideo(t),
		"timestamps": "00:00:05, 00:01:30",
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status code = %d: %s", rr.Code, rr.Body.String())
	}

	var resp ExtractResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	session, _ := env.repo.GetSession(context.Background(), resp.SessionID)
	if session.Mode != "timestamps" || len(session.Timestamps) != 2 {
		t.Errorf("session = %+v", session)
	}
}

func TestExtract_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		notFound bool
		wantCode int
		wantTag  string
	}{
		{"invalid threshold", map[string]any{"threshold": "abc"}, false, http.StatusBadRequest, "BAD_REQUEST"},
		{"negative threshold", map[string]any{"threshold": -0.1}, false, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing video", map[string]any{"video_path": ""}, false, http.StatusBadRequest, "BAD_REQUEST"},
		{"extractor missing", map[string]any{}, true, http.StatusFailedDependency, "EXTRACTOR_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			if tt.notFound {
				env.locator.err = slides.ErrExtractorNotFound
			}
			video := writeVideo(t)
			body := map[string]any{"video_path": video}
			for k, v := range tt.body {
				body[k] = v
			}

			rr := env.do(t, http.MethodPost, "/extract", body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rr.Code, tt.wantCode)
			}
			if code := decodeJSONBody(t, rr)["code"]; code != tt.wantTag {
				t.Errorf("code = %v, want %s", code, tt.wantTag)
			}
			if n := countJobs(t, env); n != 0 {
				t.Errorf("jobs = %d, want 0", n)
			}
			if _, err := os.Stat(filepath.Join(filepath.Dir(video), "lecture_slides")); !os.IsNotExist(err) {
				t.Error("output directory must not be created")
			}
		})
	}
}

func TestExtract_BadBody(t *testing.T) {
	env := setupTestEnv(t)
	rr := env.do(t, http.MethodPost, "/extract", "not an object")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestExport_NoFrames(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, http.MethodPost, "/export", map[string]any{"source_dir": t.TempDir(), "format": "pdf"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusConflict)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "NO_FRAMES" || body["error"] != "No slides to export." {
		t.Errorf("body = %v", body)
	}
}

func TestExport_Validation(t *testing.T) {
	env := setupTestEnv(t)
	dir := t.TempDir()
	writeJPEG(t, filepath.Join(dir, "0001.jpg"))

	cases := []struct {
		body map[string]any
		want int
	}{
		{map[string]any{"format": "pdf"}, http.StatusBadRequest},
		{map[string]any{"source_dir": dir, "format": "docx"}, http.StatusBadRequest},
		{map[string]any{"session_id": "missing", "format": "pdf"}, http.StatusNotFound},
		{map[string]any{"source_dir": dir, "format": "pptx"}, http.StatusAccepted},
	}
	for _, tc := range cases {
		rr := env.do(t, http.MethodPost, "/export", tc.body)
		if rr.Code != tc.want {
			t.Errorf("%v: status code = %d, want %d", tc.body, rr.Code, tc.want)
		}
	}
	if n := countJobs(t, env); n != 1 {
		t.Errorf("jobs = %d, want 1", n)
	}
}

func TestSession_FramesPreviewArtifact(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	rr := env.do(t, http.MethodPost, "/extract", map[string]any{"video_path": writeVideo(t)})
	var resp ExtractResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)

	// No frames yet.
	if rr := env.do(t, http.MethodGet, "/sessions/"+resp.SessionID+"/preview", nil); rr.Code != http.StatusNotFound {
		t.Errorf("preview before frames = %d, want 404", rr.Code)
	}

	writeJPEG(t, filepath.Join(resp.OutputDir, "0001.jpg"))
	writeJPEG(t, filepath.Join(resp.OutputDir, "0002.jpg"))
	env.cfg.Preview.DirectoryChanged(resp.OutputDir, []string{
		filepath.Join(resp.OutputDir, "0001.jpg"),
		filepath.Join(resp.OutputDir, "0002.jpg"),
	})

	rr = env.do(t, http.MethodGet, "/sessions/"+resp.SessionID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if frames, _ := body["frames"].([]interface{}); len(frames) != 2 {
		t.Errorf("frames = %v", body["frames"])
	}
	if pv, _ := body["preview"].(map[string]interface{}); pv["has_preview"] != true {
		t.Errorf("preview = %v", body["preview"])
	}

	rr = env.do(t, http.MethodGet, "/sessions/"+resp.SessionID+"/preview", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("preview = %d %s", rr.Code, rr.Header().Get("Content-Type"))
	}

	if rr := env.do(t, http.MethodGet, "/sessions/"+resp.SessionID+"/artifact", nil); rr.Code != http.StatusNotFound {
		t.Errorf("artifact before export = %d, want 404", rr.Code)
	}

	artifact := filepath.Join(resp.OutputDir, "lecture_slides.pdf")
	os.WriteFile(artifact, []byte("%PDF-1.3\n"), 0644)
	env.repo.UpdateSessionArtifact(ctx, resp.SessionID, artifact, 2)

	rr = env.do(t, http.MethodGet, "/sessions/"+resp.SessionID+"/artifact", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("artifact status = %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "lecture_slides.pdf") {
		t.Errorf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
	}

	if rr := env.do(t, http.MethodGet, "/sessions/missing", nil); rr.Code != http.StatusNotFound {
		t.Errorf("missing session = %d, want 404", rr.Code)
	}
}
