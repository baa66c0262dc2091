// Package audio holds the small amount of codec work the tooling needs:
// G.711 mu-law at the carrier's 8kHz rate and PCM16 WAV containers.
package audio

import "encoding/binary"

const (
	CarrierSampleRate = 8000
	// MulawSilence is the mu-law code for a zero sample.
	MulawSilence byte = 0xFF

	mulawBias = 0x84
	mulawClip = 32635
)

// EncodeMulawSample G.711 mu-law encodes one linear sample.
func EncodeMulawSample(sample int16) byte {
	s := int(sample)
	sign := 0
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	exponent := 7
	for mask := 0x4000; s&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (s >> (exponent + 3)) & 0x0F
	return ^byte(sign | exponent<<4 | mantissa)
}

func DecodeMulawSample(code byte) int16 {
	u := ^code
	exponent := (u >> 4) & 0x07
	magnitude := ((int(u&0x0F) << 3) + mulawBias) << exponent
	magnitude -= mulawBias
	if u&0x80 != 0 {
		return int16(-magnitude)
	}
	return int16(magnitude)
}

// EncodeMulaw converts PCM16LE samples to mu-law, one byte per sample.
func EncodeMulaw(pcm []byte) []byte {
	out := make([]byte, len(pcm)/2)
	for i := range out {
		out[i] = EncodeMulawSample(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return out
}

// DecodeMulaw converts mu-law bytes to PCM16LE.
func DecodeMulaw(mulaw []byte) []byte {
	out := make([]byte, len(mulaw)*2)
	for i, code := range mulaw {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(DecodeMulawSample(code)))
	}
	return out
}

// Resample converts PCM16LE between rates by nearest-sample picking. Good
// enough for test audio, not for anything a person has to listen to closely.
func Resample(pcm []byte, from, to int) []byte {
	samples := len(pcm) / 2
	if from <= 0 || to <= 0 || from == to || samples == 0 {
		return pcm[:samples*2]
	}
	outLen := samples * to / from
	out := make([]byte, outLen*2)
	for i := 0; i < outLen; i++ {
		src := i * from / to
		if src >= samples {
			src = samples - 1
		}
		copy(out[i*2:i*2+2], pcm[src*2:src*2+2])
	}
	return out
}
