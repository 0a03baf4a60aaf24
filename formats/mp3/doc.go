// SPDX-License-Identifier: EPL-2.0

// Package mp3 probes MP3 files via github.com/hajimehoshi/go-mp3.
//
// go-mp3 reports its decoded length in bytes of 16-bit stereo PCM; the
// prober converts that to frames and a duration. Non-seekable input cannot
// be measured and yields audio.ErrUnknownLength.
package mp3
