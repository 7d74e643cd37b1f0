package media

import (
	"time"

	"github.com/zaf/g711"
)

// Codec is an immutable audio codec specification.
type Codec struct {
	Name        string        // Codec name (e.g., "PCMU")
	PayloadType uint8         // RTP payload type (0 for PCMU)
	SampleRate  uint32        // Sample rate in Hz
	SampleDur   time.Duration // Duration per frame (typically 20ms)
	Channels    int           // Number of channels (1 for mono)
}

// CodecPCMU is G.711 µ-law, the only codec the mock transports.
var CodecPCMU = Codec{"PCMU", 0, 8000, 20 * time.Millisecond, 1}

// SamplesPerFrame returns the number of samples in one frame.
// For 8kHz with 20ms frames, this returns 160.
func (c Codec) SamplesPerFrame() int {
	return int(c.SampleRate) * int(c.SampleDur) / int(time.Second)
}

// BytesPerFrame returns the payload bytes per frame.
// For G.711 codecs, this equals SamplesPerFrame (1 byte per sample).
func (c Codec) BytesPerFrame() int {
	return c.SamplesPerFrame() * c.Channels
}

// TimestampIncrement returns the RTP timestamp increment per frame.
func (c Codec) TimestampIncrement() uint32 {
	return uint32(c.SamplesPerFrame())
}

// SilencePayload returns one frame of µ-law encoded silence.
// Used by the mock caller between scripted utterances.
func SilencePayload(c Codec) []byte {
	pcm := make([]byte, c.SamplesPerFrame()*2) // 16-bit LPCM zeroes
	return g711.EncodeUlaw(pcm)
}
