package main

import (
	"bufio"
	"fmt"
	"io"
)

// PointerError reports a cell access or net pointer move outside the tape
// bounds [0, ArraySize). Leaving the tape is fatal: the run aborts with the
// offending index rather than wrapping or clamping.
type PointerError struct {
	Index int
}

func (e *PointerError) Error() string {
	return fmt.Sprintf("pointer out of range: index %d", e.Index)
}

// Interpreter executes an IR graph directly against a mutable tape.
// The tape starts small and grows geometrically on demand, up to the
// configured array size; cells wrap modulo 256.
type Interpreter struct {
	cfg  Config
	tape []byte
	ptr  int
	in   *bufio.Reader
	out  io.Writer
}

// NewInterpreter allocates a fresh tape for one execution. Input exhaustion
// is handled per cfg.EOF; it is never an error.
func NewInterpreter(cfg Config, in io.Reader, out io.Writer) *Interpreter {
	size := cfg.ArraySize
	if size > 64 {
		size = 64
	}
	return &Interpreter{
		cfg:  cfg,
		tape: make([]byte, size),
		in:   bufio.NewReader(in),
		out:  out,
	}
}

// Run executes the graph to completion. Normal completion is reaching the
// end of the entry block; there is no halt instruction.
func (it *Interpreter) Run(ir *IR) error {
	return it.runBlock(ir, ir.Entry)
}

// Tape returns the live tape contents.
func (it *Interpreter) Tape() []byte { return it.tape }

// Pointer returns the current pointer index.
func (it *Interpreter) Pointer() int { return it.ptr }

func (it *Interpreter) runBlock(ir *IR, id BlockID) error {
	for _, op := range ir.Blocks[id].Ops {
		switch op.Kind {
		case OpMovePointer:
			next := it.ptr + op.Delta
			if next < 0 || next >= it.cfg.ArraySize {
				return &PointerError{Index: next}
			}
			it.ptr = next

		case OpAddCell:
			cell, err := it.cell(op.Offset)
			if err != nil {
				return err
			}
			*cell += op.Value

		case OpSetCell:
			cell, err := it.cell(op.Offset)
			if err != nil {
				return err
			}
			*cell = op.Value

		case OpOutput:
			cell, err := it.cell(op.Offset)
			if err != nil {
				return err
			}
			if _, err := it.out.Write([]byte{*cell}); err != nil {
				return err
			}

		case OpInput:
			cell, err := it.cell(op.Offset)
			if err != nil {
				return err
			}
			c, err := it.in.ReadByte()
			switch {
			case err == nil:
				*cell = c
			case err == io.EOF:
				if it.cfg.EOF == EOFZero {
					*cell = 0
				}
			default:
				return err
			}

		case OpScanUntilZero:
			for {
				cell, err := it.cell(0)
				if err != nil {
					return err
				}
				if *cell == 0 {
					break
				}
				next := it.ptr + op.Delta
				if next < 0 || next >= it.cfg.ArraySize {
					return &PointerError{Index: next}
				}
				it.ptr = next
			}

		case OpLoop:
			for {
				cell, err := it.cell(0)
				if err != nil {
					return err
				}
				if *cell == 0 {
					break
				}
				if err := it.runBlock(ir, op.Body); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// cell returns the cell at pointer+offset, growing the tape as needed.
func (it *Interpreter) cell(offset int) (*byte, error) {
	idx := it.ptr + offset
	if idx < 0 || idx >= it.cfg.ArraySize {
		return nil, &PointerError{Index: idx}
	}
	for idx >= len(it.tape) {
		n := len(it.tape) * 2
		if n > it.cfg.ArraySize {
			n = it.cfg.ArraySize
		}
		grown := make([]byte, n)
		copy(grown, it.tape)
		it.tape = grown
	}
	return &it.tape[idx], nil
}
