package fm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WAV constants for 32-bit float stereo.
const (
	wavFormatFloat   = 3
	wavChannels      = 2
	wavBitsPerSample = 32
	wavBlockAlign    = wavChannels * wavBitsPerSample / 8
	wavHeaderSize    = 44
)

// WriteWAV writes interleaved stereo float samples as a 32-bit IEEE float
// WAV stream.
func WriteWAV(w io.Writer, samples []float32, sampleRate int) error {
	if len(samples)%wavChannels != 0 {
		return fmt.Errorf("wav: odd sample count %d", len(samples))
	}
	dataSize := uint32(len(samples) * 4)

	var hdr [wavHeaderSize]byte
	le := binary.LittleEndian
	copy(hdr[0:], "RIFF")
	le.PutUint32(hdr[4:], 36+dataSize)
	copy(hdr[8:], "WAVE")
	copy(hdr[12:], "fmt ")
	le.PutUint32(hdr[16:], 16)
	le.PutUint16(hdr[20:], wavFormatFloat)
	le.PutUint16(hdr[22:], wavChannels)
	le.PutUint32(hdr[24:], uint32(sampleRate))
	le.PutUint32(hdr[28:], uint32(sampleRate*wavBlockAlign))
	le.PutUint16(hdr[32:], wavBlockAlign)
	le.PutUint16(hdr[34:], wavBitsPerSample)
	copy(hdr[36:], "data")
	le.PutUint32(hdr[40:], dataSize)
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}

	// Write in blocks so large exports do not double their memory.
	buf := make([]byte, 0, 16384)
	for i, s := range samples {
		buf = le.AppendUint32(buf, math.Float32bits(s))
		if len(buf) == cap(buf) || i == len(samples)-1 {
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("wav: write data: %w", err)
			}
			buf = buf[:0]
		}
	}
	return nil
}
