// SPDX-License-Identifier: EPL-2.0

// Package ebitenaudio plays mixer voices through ebiten's audio package.
//
// Clips must come from the clip package; their bytes are decoded with
// ebiten's wav, mp3 and vorbis decoders at the context sample rate. AIFF
// clips can be probed but not played here.
package ebitenaudio
