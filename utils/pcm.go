// SPDX-License-Identifier: EPL-2.0

package utils

// Float32ToInt16 converts a [-1, 1] sample to signed 16-bit PCM, clamping
// out of range input.
func Float32ToInt16(x float32) int16 {
	x = Clamp(x, -1, 1)
	if x < 0 {
		return int16(x * 32768)
	}

	return int16(x * 32767)
}

// IntToFloat32 scales a signed integer sample of the given bit depth to [-1, 1).
// 8-bit samples are unsigned as stored in WAV files.
func IntToFloat32(v, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(v-128) / 128
	case 16:
		return float32(v) / 32768
	case 24:
		return float32(v) / 8388608
	case 32:
		return float32(float64(v) / 2147483648)
	}

	return 0
}
