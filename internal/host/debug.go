package host

import (
	"fmt"
	"os"
	"path/filepath"
)

// DebugSink receives debug_html payloads. The host never parses them.
type DebugSink interface {
	Dump(html string) error
}

// FileDump overwrites Path with the latest payload, readable only by the
// user since the page markup may contain private code.
type FileDump struct {
	Path string
}

func (f FileDump) Dump(html string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create dump dir: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(html), 0o600); err != nil {
		return fmt.Errorf("write debug dump: %w", err)
	}
	return nil
}
