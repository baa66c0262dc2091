package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWAVRoundTripMono(t *testing.T) {
	pcm := []byte{
		0x00, 0x00,
		0xE8, 0x03, // 1000
		0x18, 0xFC, // -1000
	}
	wav, err := EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("len(wav) = %d, want %d", len(wav), 44+len(pcm))
	}
	gotPCM, gotSR, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if gotSR != 16000 {
		t.Fatalf("sampleRate = %d, want 16000", gotSR)
	}
	if !bytes.Equal(gotPCM, pcm) {
		t.Fatalf("pcm mismatch: got=%v want=%v", gotPCM, pcm)
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	wav, _ := EncodeWAV([]byte{
		0xE8, 0x03, 0x18, 0xFC, // L=1000, R=-1000 => 0
		0xB8, 0x0B, 0xE8, 0x03, // L=3000, R=1000  => 2000
	}, 24000)
	// Patch the fmt chunk to describe the same bytes as two channels.
	binary.LittleEndian.PutUint16(wav[22:24], 2)
	binary.LittleEndian.PutUint16(wav[32:34], 4)

	gotPCM, gotSR, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("DecodeWAV() error = %v", err)
	}
	if gotSR != 24000 {
		t.Fatalf("sampleRate = %d, want 24000", gotSR)
	}
	s1 := int16(binary.LittleEndian.Uint16(gotPCM[0:2]))
	s2 := int16(binary.LittleEndian.Uint16(gotPCM[2:4]))
	if len(gotPCM) != 4 || s1 != 0 || s2 != 2000 {
		t.Fatalf("downmix = %v, want samples [0 2000]", gotPCM)
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("not a wav file")); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("error = %v, want ErrNotWAV", err)
	}
	wav, _ := EncodeWAV([]byte{0, 0}, 8000)
	binary.LittleEndian.PutUint16(wav[34:36], 8)
	if _, _, err := DecodeWAV(wav); err == nil {
		t.Fatalf("expected error for 8-bit wav")
	}
}

func TestWriteWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	if err := WriteWAVFile(path, []byte{1, 0, 2, 0}, 0); err != nil {
		t.Fatalf("WriteWAVFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	_, sr, err := DecodeWAV(data)
	if err != nil || sr != CarrierSampleRate {
		t.Fatalf("DecodeWAV() = sr %d, err %v", sr, err)
	}
}

func TestMulawReferenceValues(t *testing.T) {
	cases := []struct {
		in   int16
		want byte
	}{
		{0, 0xFF},
		{32767, 0x80},
		{-32768, 0x00},
		{-1, 0x7F},
	}
	for _, tc := range cases {
		if got := EncodeMulawSample(tc.in); got != tc.want {
			t.Fatalf("EncodeMulawSample(%d) = %#x, want %#x", tc.in, got, tc.want)
		}
	}
	if got := DecodeMulawSample(0x80); got != 32124 {
		t.Fatalf("DecodeMulawSample(0x80) = %d, want 32124", got)
	}
}

func TestMulawCodesAreStable(t *testing.T) {
	for code := 0; code < 256; code++ {
		if code == 0x7F {
			// Negative zero re-encodes as positive zero.
			continue
		}
		if got := EncodeMulawSample(DecodeMulawSample(byte(code))); got != byte(code) {
			t.Fatalf("code %#x re-encoded as %#x", code, got)
		}
	}
}

func TestEncodeDecodeMulawBuffers(t *testing.T) {
	pcm := make([]byte, 8)
	binary.LittleEndian.PutUint16(pcm[2:], uint16(1000))
	mulaw := EncodeMulaw(pcm)
	if len(mulaw) != 4 || mulaw[0] != MulawSilence {
		t.Fatalf("EncodeMulaw() = %v", mulaw)
	}
	back := DecodeMulaw(mulaw)
	got := int16(binary.LittleEndian.Uint16(back[2:]))
	if got < 950 || got > 1050 {
		t.Fatalf("round-trip sample = %d, want about 1000", got)
	}
}

func TestResample(t *testing.T) {
	pcm := make([]byte, 1600*2) // 100ms at 16kHz
	if got := len(Resample(pcm, 16000, 8000)); got != 800*2 {
		t.Fatalf("downsampled length = %d, want %d", got, 800*2)
	}
	if got := len(Resample(pcm, 16000, 16000)); got != len(pcm) {
		t.Fatalf("same-rate length = %d, want %d", got, len(pcm))
	}
}
