package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"farsisub/internal/services"
	"farsisub/internal/services/execx"
	"farsisub/internal/testsupport"
)

type fakeWhisper struct {
	json   string
	stdout string
	err    error
	args   []string
}

func (f *fakeWhisper) Run(_ context.Context, _ string, args ...string) (execx.Result, error) {
	f.args = args
	if f.err != nil {
		return execx.Result{}, f.err
	}
	if f.json != "" {
		base := args[slices.Index(args, "-of")+1]
		if err := os.WriteFile(base+".json", []byte(f.json), 0o644); err != nil {
			return execx.Result{}, err
		}
	}
	return execx.Result{Stdout: []byte(f.stdout)}, nil
}

func newTestService(t *testing.T, runner execx.Runner) (*Service, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("whisper-cli"))
	testsupport.Touch(t, cfg.Transcription.Model)
	audio := filepath.Join(cfg.Paths.WorkDir, "audio.wav")
	testsupport.WriteSilentWAV(t, audio, 1)
	wcfg := ConfigFrom(cfg)
	wcfg.Threads = 4
	return NewService(wcfg, WithRunner(runner)), audio
}

func TestTranscribeFromJSON(t *testing.T) {
	runner := &fakeWhisper{json: `{"transcription":[{"offsets":{"from":0,"to":1500},"text":" hi"},{"offsets":{"from":1500,"to":3000},"text":" there"}]}`}
	svc, audio := newTestService(t, runner)

	segments, err := svc.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 2 || segments[0].Text != "hi" || segments[1].End != 3 {
		t.Fatalf("unexpected segments %+v", segments)
	}
	for _, flag := range []string{"-m", "-f", "--output-json", "-of", "--language", "-t"} {
		if !slices.Contains(runner.args, flag) {
			t.Fatalf("expected %s in args %v", flag, runner.args)
		}
	}
	if runner.args[slices.Index(runner.args, "--language")+1] != "en" {
		t.Fatalf("expected english language, got %v", runner.args)
	}
	base := runner.args[slices.Index(runner.args, "-of")+1]
	if _, err := os.Stat(base + ".json"); !os.IsNotExist(err) {
		t.Fatalf("expected whisper json to be removed, stat err=%v", err)
	}
	if _, err := os.Stat(audio); err != nil {
		t.Fatalf("audio must be left for the caller: %v", err)
	}
}

func TestTranscribeFallsBackToStdoutWhenTimingMissing(t *testing.T) {
	runner := &fakeWhisper{
		json:   `{"segments":[{"start":0,"end":0,"text":"no timing"}]}`,
		stdout: "[00:00:01.000 --> 00:00:02.000]  timed line\n",
	}
	svc, audio := newTestService(t, runner)
	segments, err := svc.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "timed line" || segments[0].Start != 1 {
		t.Fatalf("unexpected segments %+v", segments)
	}
}

func TestTranscribeFallsBackToStdoutWithoutJSON(t *testing.T) {
	runner := &fakeWhisper{stdout: "[00:00:00.000 --> 00:00:01.000] only stdout\n"}
	svc, audio := newTestService(t, runner)
	segments, err := svc.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "only stdout" {
		t.Fatalf("unexpected segments %+v", segments)
	}
}

func TestTranscribeNoSegmentsFails(t *testing.T) {
	svc, audio := newTestService(t, &fakeWhisper{stdout: "nothing useful\n"})
	_, err := svc.Transcribe(context.Background(), audio)
	if !errors.Is(err, services.ErrTranscriptionFailed) {
		t.Fatalf("expected transcription failure, got %v", err)
	}
}

func TestTranscribeRunnerFailure(t *testing.T) {
	svc, audio := newTestService(t, &fakeWhisper{err: errors.New("exit status 1")})
	_, err := svc.Transcribe(context.Background(), audio)
	if !errors.Is(err, services.ErrTranscriptionFailed) {
		t.Fatalf("expected transcription failure, got %v", err)
	}
}

func TestTranscribeMissingModel(t *testing.T) {
	runner := &fakeWhisper{}
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("whisper-cli"))
	audio := filepath.Join(cfg.Paths.WorkDir, "audio.wav")
	testsupport.WriteSilentWAV(t, audio, 0)
	svc := NewService(ConfigFrom(cfg), WithRunner(runner))

	if _, err := svc.Transcribe(context.Background(), audio); !errors.Is(err, services.ErrTranscriptionFailed) {
		t.Fatalf("expected transcription failure, got %v", err)
	}
	if runner.args != nil {
		t.Fatal("runner must not be invoked without a model")
	}
}
