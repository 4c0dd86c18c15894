package decode

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Open picks a decoder by file extension.
func Open(path string) (Decoder, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		w, err := OpenWAV(path)
		if err != nil {
			return nil, err
		}
		return w, nil
	case ".mp3":
		m, err := OpenMP3(path)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
