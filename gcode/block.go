package gcode

import (
	"errors"
	"math"
	"strings"
)

type Block []Word

func (b Block) Arg(w byte) (bool, float64) {
	for _, g := range b {
		if g.W == w {
			return true, g.Arg
		}
	}
	return false, 0
}

// Has reports if a word with the given letter is present, with or without a value.
func (b Block) Has(w byte) bool {
	ok, _ := b.Arg(w)
	return ok
}

// Int returns the integer value of w, or def if w is missing.
func (b Block) Int(w byte, def int) int {
	ok, val := b.Arg(w)
	if !ok {
		return def
	}
	return int(math.Round(val))
}

func (b Block) SetArg(w byte, val float64) {
	for i, g := range b {
		if g.W == w {
			b[i].Arg = val
			return
		}
	}
}

// Command returns the first G, M or T word of the block.
func (b Block) Command() (Word, bool) {
	for _, g := range b {
		if g.IsCommand() {
			return g, true
		}
	}
	return Word{}, false
}

// Is reports if the block's command is cmd.
func (b Block) Is(cmd Word) bool {
	c, ok := b.Command()
	return ok && c == cmd
}

func (b Block) Args() Block {
	res := make(Block, 0, len(b))
	for _, g := range b {
		if g.ModalGroup() == ModalGroupNone {
			res = append(res, g)
		}
	}
	return res
}
func (b Block) Clone() Block {
	c := make(Block, len(b))
	copy(c, b)
	return c
}

func (b Block) String() string {
	parts := make([]string, len(b))
	for i, g := range b {
		parts[i] = g.String()
	}
	return strings.Join(parts, " ")
}

func (b Block) Validate() error {
	var checkWord [256]bool
	var checkModal [256]bool

	var m ModalGroup
	for _, g := range b {
		if !g.IsValid() {
			return errors.New("invalid word in block")
		}
		if g.W != 'G' && g.W != 'M' && checkWord[g.W] {
			return errors.New("word was repeated in a block")
		}
		checkWord[g.W] = true
		m = g.ModalGroup()
		if m != ModalGroupNone && checkModal[m] {
			return errors.New("multiple words from same modal group")
		}
		checkModal[m] = true
	}

	return nil
}
