package maincmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mna/lit/lang/bytecode"
	"github.com/mna/lit/lang/value"
	"github.com/mna/mainer"
)

// Compile compiles the file named by args[0] and saves it as a .lbc
// bytecode file (spec §6.2) at --out, or alongside the source with its
// extension replaced by .lbc if --out was not given.
func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	mod, heap, err := compileOnly(args[0])
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		ext := filepath.Ext(args[0])
		out = strings.TrimSuffix(args[0], ext) + ".lbc"
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	return bytecode.Encode(f, heap, []*value.ModuleObj{mod})
}
