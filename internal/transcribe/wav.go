/*
Copyright (c) 2025 Binyomin Zeev

Licensed under the AGPLv3 License.
This file is part of the leining-app.
*/

package transcribe

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

// DecodeWAV parses a WAV file into mono float32 samples and the sample
// rate. It accepts 16-bit PCM and 32-bit IEEE float data, the formats
// browsers and recording tools produce for uploads. Multi-channel audio is
// downmixed by averaging.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) < 12 {
		return nil, 0, fmt.Errorf("wav data too short: %d bytes", len(data))
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE file")
	}

	var (
		audioFormat   uint16
		numChannels   uint16
		sampleRate    uint32
		bitsPerSample uint16
		haveFmt       bool
	)

	// Walk the chunk list; fmt must precede data.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if chunkSize < 0 || body+chunkSize > len(data) {
			return nil, 0, fmt.Errorf("truncated %q chunk", chunkID)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short: %d bytes", chunkSize)
			}
			audioFormat = binary.LittleEndian.Uint16(data[body : body+2])
			numChannels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			sampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bitsPerSample = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, 0, fmt.Errorf("data chunk before fmt chunk")
			}
			samples, err := decodeSamples(data[body:body+chunkSize], audioFormat, numChannels, bitsPerSample)
			if err != nil {
				return nil, 0, err
			}
			return samples, int(sampleRate), nil
		}

		// Chunks are word-aligned
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	return nil, 0, fmt.Errorf("no data chunk found")
}

// decodeSamples converts raw WAV sample bytes to mono float32
func decodeSamples(raw []byte, format, channels, bits uint16) ([]float32, error) {
	if channels == 0 {
		return nil, fmt.Errorf("invalid channel count: 0")
	}

	var perSample int
	switch {
	case format == wavFormatPCM && bits == 16:
		perSample = 2
	case format == wavFormatIEEEFloat && bits == 32:
		perSample = 4
	default:
		return nil, fmt.Errorf("unsupported wav format %d with %d bits per sample", format, bits)
	}

	frameSize := perSample * int(channels)
	frames := len(raw) / frameSize
	samples := make([]float32, 0, frames)

	for frame := 0; frame < frames; frame++ {
		var sum float32
		for ch := 0; ch < int(channels); ch++ {
			pos := frame*frameSize + ch*perSample
			switch perSample {
			case 2:
				v := int16(binary.LittleEndian.Uint16(raw[pos : pos+2]))
				sum += float32(v) / 32768.0
			case 4:
				bitsVal := binary.LittleEndian.Uint32(raw[pos : pos+4])
				sum += math.Float32frombits(bitsVal)
			}
		}
		samples = append(samples, sum/float32(channels))
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	return samples, nil
}

// EncodeWAV converts float32 samples to a mono 32-bit IEEE float WAV file.
// Used for persisting uploaded reference audio in a uniform format.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 4
	fileSize := 36 + dataSize

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(fileSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, wavFormatIEEEFloat)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // mono
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate*4)) // byte rate
	buf = binary.LittleEndian.AppendUint16(buf, 4)                    // block align
	buf = binary.LittleEndian.AppendUint16(buf, 32)                   // bits per sample
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))

	for _, sample := range samples {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(sample))
	}

	return buf
}
