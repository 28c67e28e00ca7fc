package main

// OpKind identifies a coalesced IR operation.
type OpKind int

const (
	OpMovePointer   OpKind = iota // move the tape pointer by Delta
	OpAddCell                     // add Value (mod 256) to the cell at [pointer+Offset]
	OpSetCell                     // store Value into the cell at [pointer+Offset]
	OpOutput                      // write the cell at [pointer+Offset]
	OpInput                       // read one byte into the cell at [pointer+Offset]
	OpScanUntilZero               // move the pointer by Delta until the current cell is zero
	OpLoop                        // run Body while the current cell is nonzero
)

// BlockID indexes a basic block in the IR arena.
type BlockID int

// Op is one IR operation. Which fields are meaningful depends on Kind:
// Delta for MovePointer and ScanUntilZero, Value and Offset for the cell
// operations, Offset alone for Output and Input, Body for Loop.
type Op struct {
	Kind   OpKind
	Delta  int
	Value  byte
	Offset int
	Body   BlockID
}

// Block is a straight-line sequence of operations. A block referenced by an
// OpLoop implicitly branches back to its own start for as long as the cell
// at the current pointer is nonzero.
type Block struct {
	Ops []Op
}

// IR is the block graph shared by the interpreter and the code generator.
// Blocks live in a flat arena; loops reference their body block by index,
// so the graph carries no pointer cycles. Built once, immutable afterwards.
type IR struct {
	Blocks []Block
	Entry  BlockID
}

type irBuilder struct {
	cmds   []Command
	jumps  JumpTable
	blocks []Block
}

// BuildIR converts a matched command sequence into a basic-block graph.
// Consecutive pointer moves and cell deltas are coalesced, and clear loops
// ([-]) and scan loops ([>] / [<]) are replaced by their closed-form
// operations. The input must have passed MatchLoops.
func BuildIR(cmds []Command, jumps JumpTable) *IR {
	b := &irBuilder{cmds: cmds, jumps: jumps}
	entry := b.commit(b.buildOps(0, len(cmds)))
	return &IR{Blocks: b.blocks, Entry: entry}
}

func (b *irBuilder) commit(ops []Op) BlockID {
	b.blocks = append(b.blocks, Block{Ops: ops})
	return BlockID(len(b.blocks) - 1)
}

// buildOps translates cmds[lo:hi) into one op sequence. Pointer moves are
// tracked as a virtual offset so straight-line cell operations carry the
// offset directly and a single MovePointer flushes the net motion. The
// offset is flushed before scan and generic loops, which test and move the
// real pointer; a clear loop reduces to a plain store and keeps the virtual
// offset going.
func (b *irBuilder) buildOps(lo, hi int) []Op {
	var ops []Op
	off := 0

	flush := func() {
		if off != 0 {
			ops = append(ops, Op{Kind: OpMovePointer, Delta: off})
			off = 0
		}
	}

	i := lo
	for i < hi {
		switch b.cmds[i].Kind {
		case CmdRight:
			off++
			i++

		case CmdLeft:
			off--
			i++

		case CmdInc, CmdDec:
			delta := 0
			for i < hi && (b.cmds[i].Kind == CmdInc || b.cmds[i].Kind == CmdDec) {
				if b.cmds[i].Kind == CmdInc {
					delta++
				} else {
					delta--
				}
				i++
			}
			if v := byte(delta); v != 0 {
				ops = appendCellOp(ops, Op{Kind: OpAddCell, Value: v, Offset: off})
			}

		case CmdOutput:
			ops = append(ops, Op{Kind: OpOutput, Offset: off})
			i++

		case CmdInput:
			ops = append(ops, Op{Kind: OpInput, Offset: off})
			i++

		case CmdLoopOpen:
			close := b.jumps[i]
			body := b.buildOps(i+1, close)
			switch {
			case isClearLoop(body):
				ops = appendCellOp(ops, Op{Kind: OpSetCell, Value: 0, Offset: off})
			case isScanLoop(body):
				flush()
				ops = append(ops, Op{Kind: OpScanUntilZero, Delta: body[0].Delta})
			default:
				flush()
				ops = append(ops, Op{Kind: OpLoop, Body: b.commit(body)})
			}
			i = close + 1

		case CmdLoopClose:
			// Unreachable for matched input; MatchLoops guarantees structure.
			i++
		}
	}

	flush()
	return ops
}

// appendCellOp appends an AddCell or SetCell, folding it into the previous
// operation when both touch the same cell: adds sum, a set absorbs a
// preceding add or set, and an add after a set adjusts the stored value.
func appendCellOp(ops []Op, op Op) []Op {
	if n := len(ops); n > 0 {
		last := &ops[n-1]
		if last.Offset == op.Offset && (last.Kind == OpAddCell || last.Kind == OpSetCell) {
			switch op.Kind {
			case OpAddCell:
				last.Value += op.Value
				if last.Kind == OpAddCell && last.Value == 0 {
					return ops[:n-1]
				}
				return ops
			case OpSetCell:
				*last = op
				return ops
			}
		}
	}
	return append(ops, op)
}

// isClearLoop reports whether a loop body is exactly the [-] idiom: a single
// decrement of the current cell. Loop semantics guarantee the cell is
// nonzero on entry, so replacing the loop with SetCell(0) is exact.
func isClearLoop(body []Op) bool {
	return len(body) == 1 &&
		body[0].Kind == OpAddCell &&
		body[0].Offset == 0 &&
		body[0].Value == 255 // -1 mod 256
}

// isScanLoop reports whether a loop body is exactly the [>] or [<] idiom:
// a single one-cell pointer move with no cell mutation.
func isScanLoop(body []Op) bool {
	return len(body) == 1 &&
		body[0].Kind == OpMovePointer &&
		(body[0].Delta == 1 || body[0].Delta == -1)
}
