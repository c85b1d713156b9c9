package voice

import (
	"bytes"
	"errors"
	"testing"
)

func TestRecorderAssemblesChunks(t *testing.T) {
	r := NewBufferRecorder("webm")
	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Append([]byte("abc")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := r.Append([]byte("def")); err != nil {
		t.Fatalf("append: %v", err)
	}

	sample, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !bytes.Equal(sample.Data, []byte("abcdef")) {
		t.Fatalf("data = %q, want abcdef", sample.Data)
	}
	if sample.Format != "webm" {
		t.Fatalf("format = %q", sample.Format)
	}
}

func TestRecorderStateErrors(t *testing.T) {
	r := NewBufferRecorder("wav")

	if err := r.Append([]byte("x")); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("append while idle = %v, want ErrNotRecording", err)
	}
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("stop while idle = %v, want ErrNotRecording", err)
	}

	if err := r.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("double start = %v, want ErrAlreadyRecording", err)
	}

	if _, err := r.Stop(); !errors.Is(err, ErrEmptyRecording) {
		t.Fatalf("stop with no chunks = %v, want ErrEmptyRecording", err)
	}
}

func TestRecorderRestartDiscardsPrevious(t *testing.T) {
	r := NewBufferRecorder("wav")
	_ = r.Start()
	_ = r.Append([]byte("old"))
	if _, err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	_ = r.Start()
	_ = r.Append([]byte("new"))
	sample, err := r.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if string(sample.Data) != "new" {
		t.Fatalf("data = %q, want new", sample.Data)
	}
}
