// SPDX-License-Identifier: EPL-2.0

// Package aiff probes AIFF and AIFF-C files via github.com/go-audio/aiff.
//
// The frame count comes straight from the COMM chunk, so probing never
// reads sample data.
package aiff
