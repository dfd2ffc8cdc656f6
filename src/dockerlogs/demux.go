// Package dockerlogs reads container logs from the runtime's HTTP API and
// splits its multiplexed stdout/stderr stream into lines.
package dockerlogs

import (
	"encoding/binary"
	"strings"

	"gateway-dashboard/src/models"
)

const (
	headerSize = 8

	streamStdout = 1
	streamStderr = 2
)

// Parse decodes a multiplexed log buffer. Each frame is an 8 byte header
// (stream tag in byte 0, big-endian payload length in bytes 4..7) followed by
// the payload. Decoding stops at the first incomplete header or at a frame
// whose declared length runs past the end of the buffer. Lines keep arrival
// order; empty segments are dropped.
func Parse(buf []byte) []models.MLogLine {
	var lines []models.MLogLine

	offset := 0
	for len(buf)-offset >= headerSize {
		header := buf[offset : offset+headerSize]
		size := int(binary.BigEndian.Uint32(header[4:8]))
		start := offset + headerSize

		if size > len(buf)-start {
			break
		}

		stream := streamFor(header[0])
		for _, segment := range strings.Split(string(buf[start:start+size]), "\n") {
			if segment == "" {
				continue
			}
			lines = append(lines, models.MLogLine{Stream: stream, Text: segment})
		}

		offset = start + size
	}

	return lines
}

// -----------------------------------------------------------------------------

func streamFor(tag byte) models.MLogStream {
	if tag == streamStderr {
		return models.StreamStderr
	}
	return models.StreamStdout
}

// -----------------------------------------------------------------------------

// Frame encodes one multiplexed frame. Used by tests and fakes.
func Frame(stream models.MLogStream, payload string) []byte {
	out := make([]byte, headerSize+len(payload))
	out[0] = streamStdout
	if stream == models.StreamStderr {
		out[0] = streamStderr
	}
	binary.BigEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[headerSize:], payload)
	return out
}
