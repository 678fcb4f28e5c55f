// SPDX-License-Identifier: EPL-2.0

package recorder

import "errors"

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	// ErrIO marks output file creation and finalization failures. The
	// underlying error is wrapped alongside it.
	ErrIO = errors.New("recording I/O error")
	// ErrNoSources is returned by Start when neither source is configured.
	ErrNoSources = errors.New("no capture sources configured")
)
