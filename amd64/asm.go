// Package amd64 encodes the generated function as x86-64 machine code and
// assembles an ELF64 relocatable object for it. Register assignment is
// fixed: rbx holds the tape pointer, r12 the buffer base (for free), eax is
// the accumulator. Calls to the host C routines calloc, free, getchar, and
// putchar are emitted as PLT32 relocations against undefined symbols.
package amd64

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// BranchTarget identifies a branch target within the function body.
type BranchTarget = int

type fixup struct {
	site  int // text offset of the rel32 field to patch
	label BranchTarget
}

type reloc struct {
	offset int // text offset of the rel32 field
	symbol string
}

// Builder accumulates the machine code for the single entry function.
// Branch targets are recorded as labels and resolved at Object time.
type Builder struct {
	text   bytes.Buffer
	labels []int // label -> text offset, -1 while unbound
	fixups []fixup
	relocs []reloc
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) emit(code ...byte) {
	b.text.Write(code)
}

func (b *Builder) imm32(v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	b.text.Write(buf[:])
}

// call emits a rel32 call against an imported symbol; the displacement is
// left zero for the linker to resolve via the recorded relocation.
func (b *Builder) call(symbol string) {
	b.emit(0xE8)
	b.relocs = append(b.relocs, reloc{offset: b.text.Len(), symbol: symbol})
	b.imm32(0)
}

// rel32 emits a zero displacement and records a fixup against label.
func (b *Builder) rel32(l BranchTarget) {
	b.fixups = append(b.fixups, fixup{site: b.text.Len(), label: l})
	b.imm32(0)
}

// Prologue saves the frame and the two callee-saved registers the function
// dedicates to the tape. Three pushes leave the stack 16-byte aligned at
// every later call site.
func (b *Builder) Prologue() {
	b.emit(0x55)             // push rbp
	b.emit(0x48, 0x89, 0xE5) // mov rbp, rsp
	b.emit(0x53)             // push rbx
	b.emit(0x41, 0x54)       // push r12
}

// Epilogue restores the saved registers and returns 0.
func (b *Builder) Epilogue() {
	b.emit(0x31, 0xC0) // xor eax, eax
	b.emit(0x41, 0x5C) // pop r12
	b.emit(0x5B)       // pop rbx
	b.emit(0x5D)       // pop rbp
	b.emit(0xC3)       // ret
}

// AllocTape emits calloc(size, 1) and points both the tape pointer and the
// remembered base at the zero-initialized buffer.
func (b *Builder) AllocTape(size int) {
	b.emit(0x48, 0xC7, 0xC7) // mov rdi, size
	b.imm32(int32(size))
	b.emit(0xBE) // mov esi, 1
	b.imm32(1)
	b.call("calloc")
	b.emit(0x48, 0x89, 0xC3) // mov rbx, rax
	b.emit(0x49, 0x89, 0xC4) // mov r12, rax
}

// FreeTape emits free(base).
func (b *Builder) FreeTape() {
	b.emit(0x4C, 0x89, 0xE7) // mov rdi, r12
	b.call("free")
}

func (b *Builder) AddPointer(delta int) {
	b.emit(0x48, 0x81, 0xC3) // add rbx, delta
	b.imm32(int32(delta))
}

func (b *Builder) LoadCell(offset int) {
	b.emit(0x0F, 0xB6, 0x83) // movzx eax, byte [rbx+offset]
	b.imm32(int32(offset))
}

func (b *Builder) StoreCell(offset int) {
	b.emit(0x88, 0x83) // mov byte [rbx+offset], al
	b.imm32(int32(offset))
}

func (b *Builder) AddAcc(delta int32) {
	b.emit(0x05) // add eax, delta
	b.imm32(delta)
}

func (b *Builder) SetAcc(v int32) {
	b.emit(0xB8) // mov eax, v
	b.imm32(v)
}

func (b *Builder) NewLabel() BranchTarget {
	b.labels = append(b.labels, -1)
	return BranchTarget(len(b.labels) - 1)
}

func (b *Builder) Bind(l BranchTarget) {
	b.labels[l] = b.text.Len()
}

func (b *Builder) Jump(l BranchTarget) {
	b.emit(0xE9) // jmp rel32
	b.rel32(l)
}

func (b *Builder) BranchIfZero(l BranchTarget) {
	b.emit(0x85, 0xC0) // test eax, eax
	b.emit(0x0F, 0x84) // je rel32
	b.rel32(l)
}

func (b *Builder) BranchIfEqual(v int32, l BranchTarget) {
	b.emit(0x3D) // cmp eax, v
	b.imm32(v)
	b.emit(0x0F, 0x84) // je rel32
	b.rel32(l)
}

func (b *Builder) CallOutput() {
	b.emit(0x89, 0xC7) // mov edi, eax
	b.call("putchar")
}

func (b *Builder) CallInput() {
	b.call("getchar")
}

// Object resolves label fixups and assembles the relocatable object. An
// unbound label means the generator emitted an inconsistent sequence; that
// is an internal error, not a user-facing one.
func (b *Builder) Object() ([]byte, error) {
	text := make([]byte, b.text.Len())
	copy(text, b.text.Bytes())

	for _, f := range b.fixups {
		target := b.labels[f.label]
		if target < 0 {
			return nil, fmt.Errorf("amd64: branch to unbound label %d", f.label)
		}
		rel := target - (f.site + 4)
		binary.LittleEndian.PutUint32(text[f.site:], uint32(int32(rel)))
	}

	return writeObject(text, b.relocs)
}
