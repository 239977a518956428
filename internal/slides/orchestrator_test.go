package slides

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	sceneFrames int
	failAt      int // 1-based invocation that exits non-zero; 0 = never
	calls       []string
}

func (f *fakeExtractor) ExtractScenes(ctx context.Context, videoPath string, threshold float64, pattern string) (RunResult, error) {
	f.calls = append(f.calls, "scene:"+FormatThreshold(threshold))
	if f.failAt == len(f.calls) {
		return RunResult{ExitCode: 1, StderrTail: "Invalid data found when processing input\n"}, nil
	}
	for i := 1; i <= f.sceneFrames; i++ {
		if err := writeFrame(fmt.Sprintf(pattern, i), uint8(i)); err != nil {
			return RunResult{ExitCode: -1, StderrTail: err.Error()}, nil
		}
	}
	return RunResult{}, nil
}

func (f *fakeExtractor) ExtractFrame(ctx context.Context, videoPath, timestamp, out string) (RunResult, error) {
	f.calls = append(f.calls, "ts:"+timestamp)
	if f.failAt == len(f.calls) {
		return RunResult{ExitCode: 1, StderrTail: "seek past end"}, nil
	}
	if err := writeFrame(out, uint8(len(f.calls))); err != nil {
		return RunResult{ExitCode: -1}, err
	}
	return RunResult{}, nil
}

type fakeLocator struct {
	ext   FrameExtractor
	err   error
	calls int
}

func (l *fakeLocator) Locate() (FrameExtractor, error) {
	l.calls++
	return l.ext, l.err
}

type recordingObserver struct {
	dir    string
	frames []string
}

func (r *recordingObserver) DirectoryChanged(dir string, frames []string) {
	r.dir, r.frames = dir, frames
}

func writeFrame(path string, shade uint8) error {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: 128, B: 255 - shade, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, nil)
}

func touchVideo(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("not really a video"), 0644))
	return p
}

func frameNames(frames []string) []string {
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = filepath.Base(f)
	}
	return names
}

func TestExtract_SceneDetectDefaultDir(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "lecture.mp4")
	ext := &fakeExtractor{sceneFrames: 3}
	obs := &recordingObserver{}
	o := NewOrchestrator(&fakeLocator{ext: ext}, OutputDirs{Root: tmp}, obs, nil)

	var events []ProgressEvent
	session, err := o.Extract(context.Background(), Params{VideoPath: video, Threshold: "0.2"}, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmp, "lecture_slides"), session.OutputDir)
	assert.Equal(t, []string{"0001.jpg", "0002.jpg", "0003.jpg"}, frameNames(session.Frames))
	assert.Equal(t, []string{"scene:0.2"}, ext.calls)
	assert.Equal(t, ModeSceneDetect, session.Mode)
	assert.NotEmpty(t, session.ID)

	require.Len(t, events, 2)
	assert.Equal(t, "started", events[0].Stage)
	assert.False(t, events[0].Determinate())
	assert.Equal(t, "finished", events[1].Stage)
	assert.NoError(t, events[1].Err)

	assert.Equal(t, session.OutputDir, obs.dir)
	assert.Len(t, obs.frames, 3)
}

func TestExtract_TimestampsInListOrder(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "talk.mov")
	ext := &fakeExtractor{sceneFrames: 10}
	o := NewOrchestrator(&fakeLocator{ext: ext}, OutputDirs{Root: tmp}, nil, nil)

	var done []int
	session, err := o.Extract(context.Background(), Params{
		VideoPath:  video,
		Threshold:  "not-a-number",
		Timestamps: ParseTimestampList("00:02:10, 00:00:05 ,00:01:30"),
	}, func(ev ProgressEvent) {
		if ev.Stage == "advanced" {
			assert.Equal(t, 3, ev.Total)
			done = append(done, ev.Done)
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ts:00:02:10", "ts:00:00:05", "ts:00:01:30"}, ext.calls)
	assert.Equal(t, []string{"0001.jpg", "0002.jpg", "0003.jpg"}, frameNames(session.Frames))
	assert.Equal(t, []int{1, 2, 3}, done)
	assert.Equal(t, ModeTimestamps, session.Mode)
}

func TestExtract_InvalidThresholdCreatesNothing(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "lecture.mp4")
	loc := &fakeLocator{ext: &fakeExtractor{}}
	o := NewOrchestrator(loc, OutputDirs{Root: tmp}, nil, nil)

	_, err := o.Extract(context.Background(), Params{VideoPath: video, Threshold: "abc"}, nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	assert.NoDirExists(t, filepath.Join(tmp, "lecture_slides"))
	assert.Zero(t, loc.calls, "no extractor should be resolved or launched")
}

func TestExtract_MissingVideo(t *testing.T) {
	o := NewOrchestrator(&fakeLocator{ext: &fakeExtractor{}}, OutputDirs{Root: t.TempDir()}, nil, nil)

	_, err := o.Extract(context.Background(), Params{Threshold: "0.2"}, nil)
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = o.Extract(context.Background(), Params{VideoPath: "/nonexistent/video.mp4", Threshold: "0.2"}, nil)
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestExtract_ExtractorNotFound(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "lecture.mp4")
	notFound := fmt.Errorf("%w: no ffmpeg on PATH", ErrExtractorNotFound)
	o := NewOrchestrator(&fakeLocator{err: notFound}, OutputDirs{Root: tmp}, nil, nil)

	_, err := o.Extract(context.Background(), Params{VideoPath: video, Threshold: "0.2"}, nil)
	require.ErrorIs(t, err, ErrExtractorNotFound)
	assert.NoDirExists(t, filepath.Join(tmp, "lecture_slides"))
}

func TestExtract_FailureAbortsRemainingAndKeepsFrames(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "talk.mov")
	ext := &fakeExtractor{failAt: 2}
	o := NewOrchestrator(&fakeLocator{ext: ext}, OutputDirs{Root: tmp}, nil, nil)

	var last ProgressEvent
	_, err := o.Extract(context.Background(), Params{
		VideoPath:  video,
		Timestamps: []string{"1", "2", "3"},
	}, func(ev ProgressEvent) { last = ev })
	require.ErrorIs(t, err, ErrExtractionFailed)

	var exitErr *ExtractionError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Invocation)
	assert.Equal(t, 1, exitErr.ExitCode)

	assert.Len(t, ext.calls, 2, "third invocation must not run")
	frames, err := ListFrames(filepath.Join(tmp, "talk_slides"))
	require.NoError(t, err)
	assert.Equal(t, []string{"0001.jpg"}, frameNames(frames))

	assert.Equal(t, "finished", last.Stage)
	assert.Error(t, last.Err)
	assert.Equal(t, 1, last.Done)
}

func TestExtract_OverrideDirHonoured(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "lecture.mp4")
	override := filepath.Join(tmp, "nested", "deck")
	o := NewOrchestrator(&fakeLocator{ext: &fakeExtractor{sceneFrames: 1}}, OutputDirs{}, nil, nil)

	session, err := o.Extract(context.Background(), Params{
		VideoPath: video,
		Threshold: "0.35",
		OutputDir: "  " + override + "  ",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, override, session.OutputDir)
	assert.DirExists(t, override)
}

func TestExtract_LeavesPreexistingFiles(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "lecture.mp4")
	dir := filepath.Join(tmp, "lecture_slides")
	require.NoError(t, os.MkdirAll(dir, 0755))
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("keep me"), 0644))

	o := NewOrchestrator(&fakeLocator{ext: &fakeExtractor{sceneFrames: 2}}, OutputDirs{Root: tmp}, nil, nil)
	_, err := o.Extract(context.Background(), Params{VideoPath: video, Threshold: "0.2"}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(notes)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}

func TestExtract_CountsOnlyNewFrames(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "lecture.mp4")
	dir := filepath.Join(tmp, "lecture_slides")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, writeFrame(filepath.Join(dir, "cover.jpg"), 9))

	obs := &recordingObserver{}
	o := NewOrchestrator(&fakeLocator{ext: &fakeExtractor{sceneFrames: 2}}, OutputDirs{Root: tmp}, obs, nil)
	session, err := o.Extract(context.Background(), Params{VideoPath: video, Threshold: "0.2"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"0001.jpg", "0002.jpg"}, frameNames(session.Frames))
	assert.Equal(t, []string{"0001.jpg", "0002.jpg", "cover.jpg"}, frameNames(obs.frames), "observer sees the whole directory")
}

func TestExtract_RefusesToReplaceFrames(t *testing.T) {
	tests := []struct {
		name       string
		existing   string
		timestamps []string
	}{
		{"scene mode with any numbered frame", "0007.jpg", nil},
		{"timestamp mode on a planned name", "0002.jpg", []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			video := touchVideo(t, tmp, "talk.mov")
			dir := filepath.Join(tmp, "talk_slides")
			require.NoError(t, os.MkdirAll(dir, 0755))
			existing := filepath.Join(dir, tt.existing)
			require.NoError(t, os.WriteFile(existing, []byte("earlier frame"), 0644))

			ext := &fakeExtractor{sceneFrames: 8}
			o := NewOrchestrator(&fakeLocator{ext: ext}, OutputDirs{Root: tmp}, nil, nil)
			_, err := o.Extract(context.Background(), Params{VideoPath: video, Threshold: "0.2", Timestamps: tt.timestamps}, nil)
			require.ErrorIs(t, err, ErrInvalidParameter)

			assert.Empty(t, ext.calls, "no invocation may run")
			data, err := os.ReadFile(existing)
			require.NoError(t, err)
			assert.Equal(t, "earlier frame", string(data))
		})
	}
}

func TestExtract_TimestampsBesideUnrelatedFrames(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "talk.mov")
	dir := filepath.Join(tmp, "talk_slides")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, writeFrame(filepath.Join(dir, "0009.jpg"), 1))

	o := NewOrchestrator(&fakeLocator{ext: &fakeExtractor{}}, OutputDirs{Root: tmp}, nil, nil)
	session, err := o.Extract(context.Background(), Params{VideoPath: video, Timestamps: []string{"1", "2"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001.jpg", "0002.jpg"}, frameNames(session.Frames))
}

func TestExtract_DashLeadingOutputDir(t *testing.T) {
	tmp := t.TempDir()
	video := touchVideo(t, tmp, "lecture.mp4")
	t.Chdir(tmp)

	ext := &fakeExtractor{sceneFrames: 1}
	o := NewOrchestrator(&fakeLocator{ext: ext}, OutputDirs{}, nil, nil)
	session, err := o.Extract(context.Background(), Params{VideoPath: video, Threshold: "0.2", OutputDir: "-deck"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "-deck", session.OutputDir)
	assert.Equal(t, []string{"0001.jpg"}, frameNames(session.Frames))
	assert.FileExists(t, filepath.Join(tmp, "-deck", "0001.jpg"))
}
