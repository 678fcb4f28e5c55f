// SPDX-License-Identifier: EPL-2.0

package recorder

import "github.com/ik5/duorec/audio"

// Event names sent to the Emitter.
const (
	EventAudioLevels     = "audio-levels"
	EventRecordingStatus = "recording-status"
)

// Emitter delivers events to the host. Emit is called from capture
// callbacks and must not block.
type Emitter interface {
	Emit(event string, payload any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any)

func (f EmitterFunc) Emit(event string, payload any) { f(event, payload) }

// LevelsPayload is the payload of EventAudioLevels.
type LevelsPayload = audio.Levels

// StatusPayload is the payload of EventRecordingStatus.
type StatusPayload struct {
	Recording bool   `json:"recording"`
	Path      string `json:"path,omitempty"`
}

type nopEmitter struct{}

func (nopEmitter) Emit(string, any) {}
