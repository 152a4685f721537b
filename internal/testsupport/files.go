package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Touch creates path (and its parents) with placeholder content, standing in
// for a whisper model or similar opaque file.
func Touch(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("fixture"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSilentWAV writes a mono 16 kHz 16-bit PCM WAV of the given length,
// the format the acquisition stage hands to whisper.
func WriteSilentWAV(t testing.TB, path string, seconds int) {
	t.Helper()
	const (
		sampleRate    = 16000
		bitsPerSample = 16
		channels      = 1
	)
	if seconds < 0 {
		seconds = 0
	}
	dataSize := uint32(seconds * sampleRate * channels * bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], 36+dataSize)
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], channels)
	binary.LittleEndian.PutUint32(header[24:], sampleRate)
	binary.LittleEndian.PutUint32(header[28:], sampleRate*channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(header[32:], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(header[34:], bitsPerSample)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], dataSize)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := append(header, make([]byte, dataSize)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
