package main

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/bynzo/voiceanalyst/encoder"
)

// segmentRecorder buffers raw PCM for one bounded recording attempt. feed is
// called from the audio callback; seal is called once from the session loop.
type segmentRecorder struct {
	seq   int
	start time.Time

	mu     sync.Mutex
	pcm    []byte
	sealed bool
}

func newSegmentRecorder(seq int) *segmentRecorder {
	return &segmentRecorder{seq: seq, start: time.Now()}
}

func (r *segmentRecorder) feed(data []byte) {
	r.mu.Lock()
	if !r.sealed {
		r.pcm = append(r.pcm, data...)
	}
	r.mu.Unlock()
}

// seal stops accepting audio and hands the buffered bytes off.
func (r *segmentRecorder) seal() sealedSegment {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	pcm := r.pcm
	r.pcm = nil
	return sealedSegment{seq: r.seq, pcm: pcm, start: r.start}
}

// sealedSegment is one finished recording attempt awaiting remote analysis.
type sealedSegment struct {
	seq   int
	pcm   []byte
	start time.Time
}

func (s sealedSegment) empty() bool { return len(s.pcm) == 0 }

func (s sealedSegment) duration() time.Duration {
	frames := len(s.pcm) / 2
	return time.Duration(frames) * time.Second / encoder.SampleRate
}

// encodeSegment drains the sealed PCM through the configured encoder and
// returns the payload plus its MIME type.
func encodeSegment(seg sealedSegment, format string) (payload []byte, mimeType string, encodeTime time.Duration, err error) {
	enc, err := encoder.New(format)
	if err != nil {
		return nil, "", 0, err
	}

	start := time.Now()
	samples := make([]int16, len(seg.pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(seg.pcm[i*2:]))
	}
	for i := 0; i < len(samples); i += encoder.BlockSize {
		end := min(i+encoder.BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return nil, "", 0, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, "", 0, err
	}
	return enc.Bytes(), enc.MimeType(), time.Since(start), nil
}
