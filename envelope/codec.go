// SPDX-License-Identifier: EPL-2.0

package envelope

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/ik5/wavereel/fingerprint"
)

// Cache entry layout, little endian:
//
//	magic "WFEV" | schema u16 | reserved u16 | fingerprint [8]
//	resolution f64 | duration f64 | count u32 | count x f32 | crc32 u32
//
// The CRC (IEEE) covers every byte before it.
const (
	magic      = "WFEV"
	headerSize = 4 + 2 + 2 + fingerprint.Size + 8 + 8 + 4
	trailer    = 4

	// maxSamples bounds count so a corrupt header cannot force a huge
	// allocation. Ten days of audio at 100 samples/s.
	maxSamples = 100 * 60 * 60 * 24 * 10
)

// Header is the fixed part of an encoded entry.
type Header struct {
	Schema      uint16
	Fingerprint fingerprint.Fingerprint
	Resolution  float64
	Duration    float64
	Count       int
}

// Encode serializes env under schema.
func Encode(env Envelope, schema uint16) []byte {
	buf := make([]byte, headerSize+4*len(env.Samples)+trailer)

	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint16(buf[4:6], schema)
	copy(buf[8:8+fingerprint.Size], env.Fingerprint[:])

	off := 8 + fingerprint.Size
	binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(env.Resolution))
	binary.LittleEndian.PutUint64(buf[off+8:], math.Float64bits(env.Duration))
	binary.LittleEndian.PutUint32(buf[off+16:], uint32(len(env.Samples)))

	off = headerSize
	for _, v := range env.Samples {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}

	binary.LittleEndian.PutUint32(buf[off:], crc32.ChecksumIEEE(buf[:off]))

	return buf
}

// DecodeHeader validates the framing of data and returns its header without
// checking the schema.
func DecodeHeader(data []byte) (Header, error) {
	var h Header

	if len(data) < headerSize+trailer {
		return h, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	if string(data[0:4]) != magic {
		return h, fmt.Errorf("%w: bad magic %q", ErrMalformed, data[0:4])
	}

	h.Schema = binary.LittleEndian.Uint16(data[4:6])
	copy(h.Fingerprint[:], data[8:8+fingerprint.Size])

	off := 8 + fingerprint.Size
	h.Resolution = math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
	h.Duration = math.Float64frombits(binary.LittleEndian.Uint64(data[off+8:]))
	count := binary.LittleEndian.Uint32(data[off+16:])

	if count > maxSamples {
		return h, fmt.Errorf("%w: sample count %d", ErrMalformed, count)
	}
	h.Count = int(count)

	if want := headerSize + 4*h.Count + trailer; len(data) != want {
		return h, fmt.Errorf("%w: %d bytes, want %d", ErrMalformed, len(data), want)
	}

	body := len(data) - trailer
	if sum := binary.LittleEndian.Uint32(data[body:]); sum != crc32.ChecksumIEEE(data[:body]) {
		return h, fmt.Errorf("%w: checksum", ErrMalformed)
	}

	return h, nil
}

// Decode parses an entry written by Encode. Entries with a schema other than
// schema fail with ErrSchemaMismatch; any other defect fails with ErrMalformed.
func Decode(data []byte, schema uint16) (Envelope, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Envelope{}, err
	}
	if h.Schema != schema {
		return Envelope{}, fmt.Errorf("%w: stored %d, want %d", ErrSchemaMismatch, h.Schema, schema)
	}

	if h.Resolution <= 0 || math.IsNaN(h.Resolution) || math.IsInf(h.Resolution, 0) ||
		h.Duration < 0 || math.IsNaN(h.Duration) || math.IsInf(h.Duration, 0) {
		return Envelope{}, fmt.Errorf("%w: resolution %v, duration %v", ErrMalformed, h.Resolution, h.Duration)
	}
	if h.Count != ExpectedLen(h.Duration, h.Resolution) {
		return Envelope{}, fmt.Errorf("%w: %d samples for %.3fs at %v/s", ErrMalformed, h.Count, h.Duration, h.Resolution)
	}

	env := Envelope{
		Samples:     make([]float32, h.Count),
		Resolution:  h.Resolution,
		Duration:    h.Duration,
		Fingerprint: h.Fingerprint,
	}

	off := headerSize
	for i := range env.Samples {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		if !(v >= 0 && v <= 1) {
			return Envelope{}, fmt.Errorf("%w: sample %d out of range", ErrMalformed, i)
		}
		env.Samples[i] = v
		off += 4
	}

	return env, nil
}
