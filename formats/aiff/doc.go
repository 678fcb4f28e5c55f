// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF files with github.com/go-audio/aiff.
//
// 8, 16, 24 and 32-bit integer PCM are accepted and scaled to [-1.0, 1.0].
// go-audio/aiff needs to seek, so a reader that cannot is buffered in
// memory first.
package aiff
