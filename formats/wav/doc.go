// SPDX-License-Identifier: EPL-2.0

// Package wav probes WAV files for their length and layout.
//
// It uses github.com/go-audio/wav to walk the RIFF chunks, so files with
// extra chunks before "data" (LIST, fact, ...) are handled.
//
//	info, err := wav.Prober{}.Probe(file)
//	if errors.Is(err, wav.ErrNotWavFile) {
//	    // not RIFF/WAVE
//	}
//	fmt.Println(info.Duration)
package wav
