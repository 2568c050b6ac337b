package ai

import (
	"bytes"
	"encoding/binary"
	"mime"
	"strconv"
	"strings"
)

const defaultPCMRate = 24000

// pcmSampleRate reports whether mimeType is raw 16-bit PCM and its rate.
func pcmSampleRate(mimeType string) (int, bool) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, false
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType != "audio/l16" && mediaType != "audio/pcm" {
		return 0, false
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		return rate, true
	}
	return defaultPCMRate, true
}

// pcmToWAV wraps mono 16-bit little-endian PCM in a RIFF/WAVE header.
func pcmToWAV(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
