// Package voice implements the voice capture and cloning flow: sample
// acquisition, upload, and the confirm-or-keep decision that optionally
// promotes an uploaded sample into a cloned voice.
package voice

import (
	"bytes"
	"errors"
	"sync"
)

var (
	ErrNotRecording     = errors.New("recorder is not recording")
	ErrAlreadyRecording = errors.New("recorder is already recording")
	ErrEmptyRecording   = errors.New("recording contains no audio data")
)

// Sample is one assembled audio recording ready for upload.
type Sample struct {
	Data   []byte
	Format string
}

// Recorder accumulates audio data between Start and Stop. Hardware capture
// lives outside this package; callers feed encoded chunks in as they arrive.
type Recorder interface {
	Start() error
	Append(chunk []byte) error
	Stop() (*Sample, error)
}

// BufferRecorder assembles chunks in memory.
type BufferRecorder struct {
	mu        sync.Mutex
	recording bool
	format    string
	buf       bytes.Buffer
}

// NewBufferRecorder creates a recorder producing samples in the given
// container format, e.g. "wav".
func NewBufferRecorder(format string) *BufferRecorder {
	return &BufferRecorder{format: format}
}

func (r *BufferRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}
	r.recording = true
	r.buf.Reset()
	return nil
}

func (r *BufferRecorder) Append(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return ErrNotRecording
	}
	r.buf.Write(chunk)
	return nil
}

// Stop assembles the accumulated chunks into a single sample.
func (r *BufferRecorder) Stop() (*Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return nil, ErrNotRecording
	}
	r.recording = false
	if r.buf.Len() == 0 {
		return nil, ErrEmptyRecording
	}

	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	return &Sample{Data: data, Format: r.format}, nil
}
