//go:build !linux

package eval

import (
	"errors"

	"github.com/sable-lang/sable/pkg/token"
)

// NativeLibrary is a placeholder on platforms without the libffi bridge.
type NativeLibrary struct {
	Path string
}

func openNativeLibrary(path string) (*NativeLibrary, error) {
	return nil, errors.New("native library linking is not supported on this platform")
}

func (ip *Interpreter) callExternal(ext *External, args []Object, tok token.Token) Object {
	return ip.errorAt(ErrNativeLink, tok, "native calls are not supported on this platform")
}
