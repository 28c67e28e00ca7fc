package main

// BranchTarget identifies a branch target in the function under construction.
type BranchTarget = int

// Backend is the instruction-building contract the code generator drives.
// It models a function body with a dedicated tape-pointer register and a
// single accumulator: memory operands are byte cells addressed relative to
// the pointer, and branches test the accumulator. Instruction encoding,
// register assignment, relocation, and object layout are entirely the
// backend's concern; the generator only hands it a structurally valid
// operation sequence.
type Backend interface {
	// Prologue opens the entry function; Epilogue returns 0 to the caller.
	Prologue()
	Epilogue()

	// AllocTape calls the host allocator for size zero-initialized cells
	// and points the tape pointer at the buffer base. FreeTape releases
	// the buffer.
	AllocTape(size int)
	FreeTape()

	AddPointer(delta int)

	// LoadCell zero-extends the cell at [pointer+offset] into the
	// accumulator; StoreCell writes the accumulator's low byte back.
	LoadCell(offset int)
	StoreCell(offset int)
	AddAcc(delta int32)
	SetAcc(v int32)

	NewLabel() BranchTarget
	Bind(l BranchTarget)
	Jump(l BranchTarget)
	BranchIfZero(l BranchTarget)
	BranchIfEqual(v int32, l BranchTarget)

	// CallOutput writes the accumulator's low byte to the host character
	// output. CallInput reads one byte into the accumulator, leaving -1
	// on exhausted input.
	CallOutput()
	CallInput()

	// Object finalizes the function and assembles a relocatable object
	// exporting the entry symbol and declaring the host routines called
	// above as imports.
	Object() ([]byte, error)
}

// Generate lowers an IR graph into backend instructions and requests object
// emission. The tape is heap-allocated and zero-initialized at function
// entry and freed before the function returns. Generated code performs no
// tape bounds checks; out-of-range pointer motion is undefined in compiled
// programs.
func Generate(ir *IR, cfg Config, b Backend) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b.Prologue()
	b.AllocTape(cfg.ArraySize)
	lowerBlock(ir, ir.Entry, cfg, b)
	b.FreeTape()
	b.Epilogue()

	return b.Object()
}

func lowerBlock(ir *IR, id BlockID, cfg Config, b Backend) {
	for _, op := range ir.Blocks[id].Ops {
		switch op.Kind {
		case OpMovePointer:
			b.AddPointer(op.Delta)

		case OpAddCell:
			b.LoadCell(op.Offset)
			b.AddAcc(int32(op.Value))
			b.StoreCell(op.Offset)

		case OpSetCell:
			b.SetAcc(int32(op.Value))
			b.StoreCell(op.Offset)

		case OpOutput:
			b.LoadCell(op.Offset)
			b.CallOutput()

		case OpInput:
			b.CallInput()
			switch cfg.EOF {
			case EOFIgnore:
				skip := b.NewLabel()
				b.BranchIfEqual(-1, skip)
				b.StoreCell(op.Offset)
				b.Bind(skip)
			case EOFZero:
				zero := b.NewLabel()
				store := b.NewLabel()
				b.BranchIfEqual(-1, zero)
				b.Jump(store)
				b.Bind(zero)
				b.SetAcc(0)
				b.Bind(store)
				b.StoreCell(op.Offset)
			}

		case OpScanUntilZero:
			head := b.NewLabel()
			done := b.NewLabel()
			b.Bind(head)
			b.LoadCell(0)
			b.BranchIfZero(done)
			b.AddPointer(op.Delta)
			b.Jump(head)
			b.Bind(done)

		case OpLoop:
			head := b.NewLabel()
			done := b.NewLabel()
			b.Bind(head)
			b.LoadCell(0)
			b.BranchIfZero(done)
			lowerBlock(ir, op.Body, cfg, b)
			b.Jump(head)
			b.Bind(done)
		}
	}
}
