// SPDX-License-Identifier: EPL-2.0

package miniaudio

import (
	"errors"
	"testing"

	"github.com/ik5/duorec/capture"
)

func TestMatchName(t *testing.T) {
	t.Parallel()

	names := []string{
		"Built-in Audio Analog Stereo",
		"Monitor of Built-in Audio Analog Stereo",
		"USB PnP Sound Device",
	}

	tests := []struct {
		want string
		idx  int
	}{
		{"usb", 2},
		{"MONITOR", 1},
		{"analog stereo", 0},
		{"bluetooth", -1},
	}

	for _, tt := range tests {
		if got := matchName(names, tt.want); got != tt.idx {
			t.Errorf("matchName(%q) = %d, want %d", tt.want, got, tt.idx)
		}
	}
}

func TestSystem_UnknownMode(t *testing.T) {
	t.Parallel()

	_, err := System(Config{Mode: "bogus"})
	if !errors.Is(err, capture.ErrSourceUnavailable) {
		t.Errorf("System(bogus mode) error = %v, want ErrSourceUnavailable", err)
	}
}
