package gemini

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type fakeOps struct {
	calls      []string
	pollsLeft  int // GetJob reports done once this reaches zero
	pollErr    error
	submitErr  error
	downloads  int
	resultURI  string
	downloaded []byte
}

func (f *fakeOps) CreateJob(ctx context.Context, req VideoRequest) (operation, error) {
	f.calls = append(f.calls, "submit:"+req.Prompt)
	if f.submitErr != nil {
		return operation{}, f.submitErr
	}
	return operation{Name: "operations/job-1"}, nil
}

func (f *fakeOps) GetJob(ctx context.Context, name string) (operation, error) {
	f.calls = append(f.calls, "poll")
	if f.pollErr != nil {
		return operation{}, f.pollErr
	}
	f.pollsLeft--
	if f.pollsLeft <= 0 {
		return operation{Name: name, Done: true, VideoURI: f.resultURI}, nil
	}
	return operation{Name: name, Done: false}, nil
}

func (f *fakeOps) Download(ctx context.Context, uri string) ([]byte, error) {
	f.calls = append(f.calls, "fetch:"+uri)
	f.downloads++
	return f.downloaded, nil
}

type fakeSelector struct {
	selected  bool
	openCalls int
}

func (s *fakeSelector) HasSelectedKey() bool { return s.selected }
func (s *fakeSelector) OpenSelectKey() error {
	s.openCalls++
	s.selected = true
	return nil
}

func newTestGenerator(ops videoOperations, keys KeySelector) *VideoGenerator {
	return &VideoGenerator{
		ops:      ops,
		keys:     keys,
		interval: time.Millisecond,
		maxPolls: 10,
		log:      zap.NewNop(),
	}
}

func TestGenerateFetchesOnceAfterThirdPoll(t *testing.T) {
	ops := &fakeOps{pollsLeft: 3, resultURI: "https://dl.example/video?x=1", downloaded: []byte("mp4")}
	g := newTestGenerator(ops, &fakeSelector{selected: true})
	data, err := g.Generate(context.Background(), VideoRequest{ImageBytes: []byte("img"), Prompt: "p"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if string(data) != "mp4" {
		t.Fatalf("unexpected bytes %q", data)
	}
	if ops.downloads != 1 {
		t.Fatalf("expected exactly one fetch, got %d", ops.downloads)
	}
	want := []string{"submit:p", "poll", "poll", "poll", "fetch:https://dl.example/video?x=1"}
	if len(ops.calls) != len(want) {
		t.Fatalf("call sequence %v, want %v", ops.calls, want)
	}
	for i := range want {
		if ops.calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q (fetch must come after the final poll)", i, ops.calls[i], want[i])
		}
	}
}

func TestGenerateEntityNotFoundTriggersReauthOnce(t *testing.T) {
	ops := &fakeOps{pollErr: fmt.Errorf("Requested entity was not found.")}
	sel := &fakeSelector{selected: true}
	g := newTestGenerator(ops, sel)
	_, err := g.Generate(context.Background(), VideoRequest{ImageBytes: []byte("img")})
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if sel.openCalls != 1 {
		t.Fatalf("re-select must run exactly once, ran %d times", sel.openCalls)
	}
	// One submit, one failing poll, nothing after: no immediate re-poll.
	if len(ops.calls) != 2 {
		t.Fatalf("no further calls after credential failure, got %v", ops.calls)
	}
	if ops.downloads != 0 {
		t.Fatalf("no fetch after credential failure")
	}
}

func TestGenerateGenericPollFailure(t *testing.T) {
	ops := &fakeOps{pollErr: fmt.Errorf("boom")}
	sel := &fakeSelector{selected: true}
	g := newTestGenerator(ops, sel)
	_, err := g.Generate(context.Background(), VideoRequest{ImageBytes: []byte("img")})
	if err == nil || errors.Is(err, ErrInvalidKey) {
		t.Fatalf("generic failure must not classify as credential error: %v", err)
	}
	if sel.openCalls != 0 {
		t.Fatalf("generic failure must not open the key selector")
	}
}

func TestGeneratePollBudgetExhausted(t *testing.T) {
	ops := &fakeOps{pollsLeft: 1 << 30}
	g := newTestGenerator(ops, &fakeSelector{selected: true})
	g.maxPolls = 3
	_, err := g.Generate(context.Background(), VideoRequest{ImageBytes: []byte("img")})
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("expected ErrTimedOut, got %v", err)
	}
	if ops.downloads != 0 {
		t.Fatalf("timed-out job must not fetch")
	}
}

func TestGenerateContextCancellation(t *testing.T) {
	ops := &fakeOps{pollsLeft: 1 << 30}
	g := newTestGenerator(ops, &fakeSelector{selected: true})
	g.interval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.Generate(ctx, VideoRequest{ImageBytes: []byte("img")})
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("generate did not observe cancellation")
	}
}

func TestGenerateDoneWithoutURI(t *testing.T) {
	ops := &fakeOps{pollsLeft: 1, resultURI: ""}
	g := newTestGenerator(ops, &fakeSelector{selected: true})
	_, err := g.Generate(context.Background(), VideoRequest{ImageBytes: []byte("img")})
	if err == nil {
		t.Fatal("done operation without a result reference must fail")
	}
	if ops.downloads != 0 {
		t.Fatalf("must not fetch without a result reference")
	}
}

func TestGenerateBlankPromptUsesDefault(t *testing.T) {
	ops := &fakeOps{pollsLeft: 1, resultURI: "https://dl.example/v?a=b", downloaded: []byte("x")}
	g := newTestGenerator(ops, &fakeSelector{selected: true})
	if _, err := g.Generate(context.Background(), VideoRequest{ImageBytes: []byte("img")}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if ops.calls[0] != "submit:"+DefaultVideoPrompt {
		t.Fatalf("blank prompt should submit the default, got %q", ops.calls[0])
	}
}

func TestGenerateOpensSelectorWhenNoKeySelected(t *testing.T) {
	ops := &fakeOps{pollsLeft: 1, resultURI: "https://dl.example/v?a=b", downloaded: []byte("x")}
	sel := &fakeSelector{selected: false}
	g := newTestGenerator(ops, sel)
	if _, err := g.Generate(context.Background(), VideoRequest{ImageBytes: []byte("img")}); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if sel.openCalls != 1 {
		t.Fatalf("selector should open once before submit, ran %d times", sel.openCalls)
	}
}

func TestGenerateRequiresImage(t *testing.T) {
	g := newTestGenerator(&fakeOps{}, &fakeSelector{selected: true})
	if _, err := g.Generate(context.Background(), VideoRequest{}); err == nil {
		t.Fatal("missing reference image must fail before submission")
	}
}
