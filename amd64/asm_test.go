package amd64

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/nalgeon/be"
)

func TestEncodings(t *testing.T) {
	tests := []struct {
		name string
		emit func(b *Builder)
		want []byte
	}{
		{"add pointer", func(b *Builder) { b.AddPointer(5) },
			[]byte{0x48, 0x81, 0xC3, 0x05, 0x00, 0x00, 0x00}},
		{"add pointer negative", func(b *Builder) { b.AddPointer(-1) },
			[]byte{0x48, 0x81, 0xC3, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"load cell", func(b *Builder) { b.LoadCell(2) },
			[]byte{0x0F, 0xB6, 0x83, 0x02, 0x00, 0x00, 0x00}},
		{"store cell", func(b *Builder) { b.StoreCell(0) },
			[]byte{0x88, 0x83, 0x00, 0x00, 0x00, 0x00}},
		{"add acc", func(b *Builder) { b.AddAcc(10) },
			[]byte{0x05, 0x0A, 0x00, 0x00, 0x00}},
		{"set acc", func(b *Builder) { b.SetAcc(0) },
			[]byte{0xB8, 0x00, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.emit(b)
			be.Equal(t, b.text.Bytes(), tt.want)
		})
	}
}

func TestBackwardBranchFixup(t *testing.T) {
	b := NewBuilder()
	head := b.NewLabel()
	b.Bind(head)
	b.SetAcc(1) // 5 bytes
	b.Jump(head)

	obj, err := b.Object()
	be.Err(t, err, nil)

	f, err := elf.NewFile(bytes.NewReader(obj))
	be.Err(t, err, nil)
	defer f.Close()

	text, err := f.Section(".text").Data()
	be.Err(t, err, nil)

	// jmp rel32 at offset 5, displacement measured from the next
	// instruction (offset 10) back to the label at 0.
	be.Equal(t, text[5], byte(0xE9))
	rel := int32(binary.LittleEndian.Uint32(text[6:10]))
	be.Equal(t, rel, int32(-10))
}

func TestForwardBranchFixup(t *testing.T) {
	b := NewBuilder()
	done := b.NewLabel()
	b.BranchIfZero(done) // test(2) + je(2) + rel32(4)
	b.SetAcc(1)          // 5 bytes
	b.Bind(done)

	obj, err := b.Object()
	be.Err(t, err, nil)

	f, err := elf.NewFile(bytes.NewReader(obj))
	be.Err(t, err, nil)
	defer f.Close()

	text, err := f.Section(".text").Data()
	be.Err(t, err, nil)

	rel := int32(binary.LittleEndian.Uint32(text[4:8]))
	be.Equal(t, rel, int32(5))
}

func TestUnboundLabelFails(t *testing.T) {
	b := NewBuilder()
	b.Jump(b.NewLabel())

	_, err := b.Object()
	be.True(t, err != nil)
}

func TestObjectSymbolsAndRelocations(t *testing.T) {
	b := NewBuilder()
	b.Prologue()
	b.AllocTape(30000)
	b.FreeTape()
	b.Epilogue()

	obj, err := b.Object()
	be.Err(t, err, nil)

	f, err := elf.NewFile(bytes.NewReader(obj))
	be.Err(t, err, nil)
	defer f.Close()

	be.Equal(t, f.Type, elf.ET_REL)
	be.Equal(t, f.Machine, elf.EM_X86_64)
	be.Equal(t, f.Class, elf.ELFCLASS64)

	syms, err := f.Symbols()
	be.Err(t, err, nil)

	var entry *elf.Symbol
	for i := range syms {
		if syms[i].Name == EntrySymbol {
			entry = &syms[i]
		}
	}
	be.True(t, entry != nil)
	be.Equal(t, elf.ST_BIND(entry.Info), elf.STB_GLOBAL)
	be.Equal(t, elf.ST_TYPE(entry.Info), elf.STT_FUNC)
	be.Equal(t, entry.Value, uint64(0))

	text := f.Section(".text")
	be.True(t, text != nil)
	be.Equal(t, entry.Size, text.Size)

	// One relocation per call, each PLT32 against the import, each
	// pointing inside .text.
	relaSec := f.Section(".rela.text")
	be.True(t, relaSec != nil)
	data, err := relaSec.Data()
	be.Err(t, err, nil)
	be.Equal(t, len(data)%24, 0)
	be.Equal(t, len(data)/24, 2) // calloc, free

	for off := 0; off < len(data); off += 24 {
		var r elf.Rela64
		r.Off = binary.LittleEndian.Uint64(data[off:])
		r.Info = binary.LittleEndian.Uint64(data[off+8:])
		r.Addend = int64(binary.LittleEndian.Uint64(data[off+16:]))

		be.True(t, r.Off < text.Size)
		be.Equal(t, elf.R_X86_64(elf.R_TYPE64(r.Info)), elf.R_X86_64_PLT32)
		be.Equal(t, r.Addend, int64(-4))

		sym := syms[elf.R_SYM64(r.Info)-1] // Symbols omits the null entry
		be.Equal(t, sym.Section, elf.SHN_UNDEF)
	}
}
