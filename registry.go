// SPDX-License-Identifier: EPL-2.0

package duorec

import (
	"github.com/ik5/duorec/audio"
	"github.com/ik5/duorec/formats/aiff"
	"github.com/ik5/duorec/formats/mp3"
	"github.com/ik5/duorec/formats/vorbis"
	"github.com/ik5/duorec/formats/wav"
)

// DefaultRegistry returns a registry with every bundled decoder, keyed by
// file extension.
func DefaultRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	return reg
}
