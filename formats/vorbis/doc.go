// SPDX-License-Identifier: EPL-2.0

// Package vorbis probes Ogg Vorbis files via github.com/jfreymuth/oggvorbis.
package vorbis
