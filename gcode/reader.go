package gcode

import "io"

// Reader yields blocks until io.EOF.
type Reader interface {
	Read() (Block, error)
}

// BlocksReader replays a fixed list of blocks.
type BlocksReader struct {
	Blocks []Block
	n      int
}

func (b *BlocksReader) Read() (Block, error) {
	if b.n >= len(b.Blocks) {
		return nil, io.EOF
	}
	b.n++
	return b.Blocks[b.n-1], nil
}

// ReadAll drains r.
func ReadAll(r Reader) ([]Block, error) {
	var res []Block
	for {
		b, err := r.Read()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res = append(res, b)
	}
}
