// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package providers

import (
	"encoding/binary"
	"strconv"
	"strings"
)

const (
	defaultSampleRate = 24000
	pcmChannels       = 1
	pcmBitsPerSample  = 16
)

// SampleRateOf reads the rate parameter of an "audio/L16;codec=pcm;rate=24000"
// style MIME type.
func SampleRateOf(mimeType string) int {
	for _, p := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return defaultSampleRate
}

// PCMDuration is the playback length in seconds of mono 16-bit samples.
func PCMDuration(pcm []byte, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(pcm)) / float64(sampleRate*pcmChannels*pcmBitsPerSample/8)
}

// EncodeWAV prefixes raw mono 16-bit PCM with a RIFF header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	le := binary.LittleEndian
	blockAlign := pcmChannels * pcmBitsPerSample / 8
	out := make([]byte, 0, 44+len(pcm))
	out = append(out, "RIFF"...)
	out = le.AppendUint32(out, uint32(36+len(pcm)))
	out = append(out, "WAVEfmt "...)
	out = le.AppendUint32(out, 16)
	out = le.AppendUint16(out, 1) // PCM
	out = le.AppendUint16(out, pcmChannels)
	out = le.AppendUint32(out, uint32(sampleRate))
	out = le.AppendUint32(out, uint32(sampleRate*blockAlign))
	out = le.AppendUint16(out, uint16(blockAlign))
	out = le.AppendUint16(out, pcmBitsPerSample)
	out = append(out, "data"...)
	out = le.AppendUint32(out, uint32(len(pcm)))
	return append(out, pcm...)
}
