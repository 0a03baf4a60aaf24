// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides an in-memory clip loader and a playback device
// driven by an explicit clock, for testing code built on the mixer.
package audiotest
