package main

import (
	"testing"

	"github.com/nalgeon/be"
)

func buildSource(t *testing.T, src string) *IR {
	t.Helper()
	ir, err := buildProgram([]byte(src))
	be.Err(t, err, nil)
	return ir
}

func entryOps(ir *IR) []Op {
	return ir.Blocks[ir.Entry].Ops
}

func TestCoalesceCellDeltas(t *testing.T) {
	ops := entryOps(buildSource(t, "+++++"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpAddCell)
	be.Equal(t, ops[0].Value, byte(5))
	be.Equal(t, ops[0].Offset, 0)
}

func TestCoalesceMixedDeltas(t *testing.T) {
	ops := entryOps(buildSource(t, "++-"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpAddCell)
	be.Equal(t, ops[0].Value, byte(1))
}

func TestCancellingDeltasVanish(t *testing.T) {
	be.Equal(t, len(entryOps(buildSource(t, "+-"))), 0)
	be.Equal(t, len(entryOps(buildSource(t, "><"))), 0)
}

func TestCoalescePointerMoves(t *testing.T) {
	ops := entryOps(buildSource(t, ">>><"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpMovePointer)
	be.Equal(t, ops[0].Delta, 2)
}

func TestCellOpsCarryVirtualOffset(t *testing.T) {
	// >+< nets to zero pointer motion; the increment lands at offset 1.
	ops := entryOps(buildSource(t, ">+<"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpAddCell)
	be.Equal(t, ops[0].Value, byte(1))
	be.Equal(t, ops[0].Offset, 1)
}

func TestNetPointerMoveIsFlushedLast(t *testing.T) {
	ops := entryOps(buildSource(t, ">+>"))
	be.Equal(t, len(ops), 2)
	be.Equal(t, ops[0].Kind, OpAddCell)
	be.Equal(t, ops[0].Offset, 1)
	be.Equal(t, ops[1].Kind, OpMovePointer)
	be.Equal(t, ops[1].Delta, 2)
}

func TestClearLoopIdiom(t *testing.T) {
	ops := entryOps(buildSource(t, "[-]"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpSetCell)
	be.Equal(t, ops[0].Value, byte(0))
	be.Equal(t, ops[0].Offset, 0)
}

func TestIncrementLoopIsNotClear(t *testing.T) {
	// [+] clears too, by wrapping, but only [-] is the recognized idiom.
	ops := entryOps(buildSource(t, "[+]"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpLoop)
}

func TestSetAbsorbsFollowingAdds(t *testing.T) {
	ops := entryOps(buildSource(t, "[-]+++"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpSetCell)
	be.Equal(t, ops[0].Value, byte(3))
}

func TestScanLoopIdiom(t *testing.T) {
	ops := entryOps(buildSource(t, "[>]"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpScanUntilZero)
	be.Equal(t, ops[0].Delta, 1)

	ops = entryOps(buildSource(t, "[<]"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpScanUntilZero)
	be.Equal(t, ops[0].Delta, -1)
}

func TestWideScanIsNotAnIdiom(t *testing.T) {
	ops := entryOps(buildSource(t, "[>>]"))
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpLoop)
}

func TestGenericLoopBody(t *testing.T) {
	ir := buildSource(t, "[->+<]")
	ops := entryOps(ir)
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpLoop)

	body := ir.Blocks[ops[0].Body].Ops
	be.Equal(t, len(body), 2)
	be.Equal(t, body[0].Kind, OpAddCell)
	be.Equal(t, body[0].Value, byte(255)) // -1 mod 256
	be.Equal(t, body[0].Offset, 0)
	be.Equal(t, body[1].Kind, OpAddCell)
	be.Equal(t, body[1].Value, byte(1))
	be.Equal(t, body[1].Offset, 1)
}

func TestNestedLoopsBuildNestedBlocks(t *testing.T) {
	ir := buildSource(t, "[>[-]<-]")
	outer := entryOps(ir)
	be.Equal(t, len(outer), 1)
	be.Equal(t, outer[0].Kind, OpLoop)

	body := ir.Blocks[outer[0].Body].Ops
	// >[-]<- becomes a clear at offset 1 and a decrement at offset 0.
	be.Equal(t, len(body), 2)
	be.Equal(t, body[0].Kind, OpSetCell)
	be.Equal(t, body[0].Offset, 1)
	be.Equal(t, body[1].Kind, OpAddCell)
	be.Equal(t, body[1].Value, byte(255))
	be.Equal(t, body[1].Offset, 0)
}

func TestEmptyLoopStaysGeneric(t *testing.T) {
	ir := buildSource(t, "[]")
	ops := entryOps(ir)
	be.Equal(t, len(ops), 1)
	be.Equal(t, ops[0].Kind, OpLoop)
	be.Equal(t, len(ir.Blocks[ops[0].Body].Ops), 0)
}

func TestClearLoopKeepsVirtualOffset(t *testing.T) {
	// A clear loop is just a store, so it rides the virtual offset; the
	// net pointer move still flushes at the end.
	ops := entryOps(buildSource(t, ">>[-]"))
	be.Equal(t, len(ops), 2)
	be.Equal(t, ops[0].Kind, OpSetCell)
	be.Equal(t, ops[0].Offset, 2)
	be.Equal(t, ops[1].Kind, OpMovePointer)
	be.Equal(t, ops[1].Delta, 2)
}

func TestGenericLoopFlushesPointerFirst(t *testing.T) {
	// A real loop tests the cell at the pointer, so the pending move must
	// be flushed before it.
	ops := entryOps(buildSource(t, ">>[+]"))
	be.Equal(t, len(ops), 2)
	be.Equal(t, ops[0].Kind, OpMovePointer)
	be.Equal(t, ops[0].Delta, 2)
	be.Equal(t, ops[1].Kind, OpLoop)
}
