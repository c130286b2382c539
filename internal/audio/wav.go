package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// wavHeader is the canonical 44-byte header of a mono PCM-16 WAV file
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

const (
	wavHeaderSize  = 44
	pcmFormat      = 1
	monoChannels   = 1
	bitsPerSample  = 16
	bytesPerSample = bitsPerSample / 8
)

func newWAVHeader(numSamples, sampleRate int) wavHeader {
	dataSize := uint32(numSamples * bytesPerSample)
	return wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     wavHeaderSize - 8 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   pcmFormat,
		NumChannels:   monoChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * monoChannels * bytesPerSample),
		BlockAlign:    monoChannels * bytesPerSample,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// WriteWAV streams mono PCM-16 samples to w as a WAV file
func WriteWAV(w io.Writer, samples []int16, sampleRate int) error {
	if len(samples) == 0 {
		return fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if err := binary.Write(w, binary.LittleEndian, newWAVHeader(len(samples), sampleRate)); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return nil
}

// EncodeWAV encodes mono PCM-16 samples into an in-memory WAV file
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(samples)*bytesPerSample)

	if err := WriteWAV(&buf, samples, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeWAV decodes a mono PCM-16 WAV file back to samples and sample rate
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("WAV data too short: %d bytes", len(data))
	}

	r := bytes.NewReader(data)
	var header wavHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if string(header.ChunkID[:]) != "RIFF" || string(header.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("invalid WAV file: missing RIFF/WAVE header")
	}

	if string(header.Subchunk1ID[:]) != "fmt " || string(header.Subchunk2ID[:]) != "data" {
		return nil, 0, fmt.Errorf("invalid WAV file: unexpected chunk layout")
	}

	if header.AudioFormat != pcmFormat || header.BitsPerSample != bitsPerSample || header.NumChannels != monoChannels {
		return nil, 0, fmt.Errorf("unsupported WAV format: format=%d bits=%d channels=%d",
			header.AudioFormat, header.BitsPerSample, header.NumChannels)
	}

	numSamples := int(header.Subchunk2Size) / bytesPerSample
	if numSamples == 0 {
		return nil, 0, fmt.Errorf("WAV file has an empty data chunk")
	}
	if available := r.Len() / bytesPerSample; numSamples > available {
		return nil, 0, fmt.Errorf("WAV data chunk truncated: header declares %d samples, %d present", numSamples, available)
	}

	samples := make([]int16, numSamples)
	if err := binary.Read(r, binary.LittleEndian, samples); err != nil {
		return nil, 0, fmt.Errorf("failed to read audio samples: %w", err)
	}

	return samples, int(header.SampleRate), nil
}

// WriteTempWAV writes the chunk to a new temporary WAV file in dir (the
// system temp dir when empty). The caller removes the file.
func WriteTempWAV(dir string, chunk Chunk) (path string, err error) {
	f, err := os.CreateTemp(dir, "chunk-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp WAV: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	w := bufio.NewWriter(f)
	if err := WriteWAV(w, chunk.Samples, chunk.SampleRate); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to write temp WAV: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp WAV: %w", err)
	}

	return f.Name(), nil
}

// PCM16ToFloat32 converts samples to the [-1, 1) float range
func PCM16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}
