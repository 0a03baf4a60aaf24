// SPDX-License-Identifier: EPL-2.0

// Package clip resolves mixer clip references to in-memory encoded clips.
//
// Loader reads files from an fs.FS and probes them with the format probers
// under formats/. AsyncLoader runs loads in the background so the tick
// thread never blocks on disk; the mixer sees mixer.ErrClipPending until a
// clip is ready. Preload warms a loader up front.
package clip
