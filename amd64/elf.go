package amd64

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// EntrySymbol is the externally-linkable function symbol the object
// exports; a C runtime's startup code invokes it directly.
const EntrySymbol = "main"

const (
	ehdrSize = 64
	shdrSize = 64
	symSize  = 24
	relaSize = 24
)

// strtab builds an ELF string table: a zero byte followed by NUL-terminated
// names, addressed by byte offset.
type strtab struct {
	buf bytes.Buffer
}

func newStrtab() *strtab {
	t := &strtab{}
	t.buf.WriteByte(0)
	return t
}

func (t *strtab) add(name string) uint32 {
	off := uint32(t.buf.Len())
	t.buf.WriteString(name)
	t.buf.WriteByte(0)
	return off
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// writeObject lays out an ET_REL object with the function body in .text,
// PLT32 relocations for the imported host routines in .rela.text, and a
// symbol table exporting EntrySymbol and declaring each import undefined.
func writeObject(text []byte, relocs []reloc) ([]byte, error) {
	// Imports in order of first use, one UND symbol each.
	var imports []string
	symIndex := map[string]uint32{}
	for _, r := range relocs {
		if _, ok := symIndex[r.symbol]; !ok {
			// symbol indices: 0 null, 1 .text section, 2 entry, 3+ imports
			symIndex[r.symbol] = uint32(3 + len(imports))
			imports = append(imports, r.symbol)
		}
	}

	names := newStrtab()
	entryName := names.add(EntrySymbol)
	importNames := make([]uint32, len(imports))
	for i, sym := range imports {
		importNames[i] = names.add(sym)
	}

	// Symbol order: null, .text section, entry, imports.
	var symtab bytes.Buffer
	writeSym(&symtab, 0, 0, 0, 0, 0)
	writeSym(&symtab, 0, symInfo(elf.STB_LOCAL, elf.STT_SECTION), 1, 0, 0)
	writeSym(&symtab, entryName, symInfo(elf.STB_GLOBAL, elf.STT_FUNC), 1, 0, uint64(len(text)))
	for _, name := range importNames {
		writeSym(&symtab, name, symInfo(elf.STB_GLOBAL, elf.STT_NOTYPE), uint16(elf.SHN_UNDEF), 0, 0)
	}
	firstGlobal := uint32(2)

	// The rel32 field sits 4 bytes before the next instruction, hence the
	// constant -4 addend on every call relocation.
	addend := int64(-4)
	var rela bytes.Buffer
	for _, r := range relocs {
		writeU64(&rela, uint64(r.offset))
		writeU64(&rela, uint64(symIndex[r.symbol])<<32|uint64(elf.R_X86_64_PLT32))
		writeU64(&rela, uint64(addend))
	}

	shnames := newStrtab()
	textName := shnames.add(".text")
	relaName := shnames.add(".rela.text")
	symtabName := shnames.add(".symtab")
	strtabName := shnames.add(".strtab")
	shstrtabName := shnames.add(".shstrtab")

	// File layout: header, section data, then the section header table.
	textOff := ehdrSize
	relaOff := align8(textOff + len(text))
	symtabOff := align8(relaOff + rela.Len())
	strtabOff := symtabOff + symtab.Len()
	shstrtabOff := strtabOff + names.buf.Len()
	shOff := align8(shstrtabOff + shnames.buf.Len())

	var out bytes.Buffer

	// ELF header.
	out.Write([]byte{0x7F, 'E', 'L', 'F',
		byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT),
		byte(elf.ELFOSABI_NONE), 0, 0, 0, 0, 0, 0, 0, 0})
	writeU16(&out, uint16(elf.ET_REL))
	writeU16(&out, uint16(elf.EM_X86_64))
	writeU32(&out, uint32(elf.EV_CURRENT))
	writeU64(&out, 0)              // entry
	writeU64(&out, 0)              // phoff
	writeU64(&out, uint64(shOff))  // shoff
	writeU32(&out, 0)              // flags
	writeU16(&out, ehdrSize)
	writeU16(&out, 0) // phentsize
	writeU16(&out, 0) // phnum
	writeU16(&out, shdrSize)
	writeU16(&out, 6) // shnum
	writeU16(&out, 5) // shstrndx

	out.Write(text)
	pad(&out, relaOff)
	out.Write(rela.Bytes())
	pad(&out, symtabOff)
	out.Write(symtab.Bytes())
	out.Write(names.buf.Bytes())
	out.Write(shnames.buf.Bytes())
	pad(&out, shOff)

	// Section headers: null, .text, .rela.text, .symtab, .strtab, .shstrtab.
	writeShdr(&out, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	writeShdr(&out, textName, uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR),
		uint64(textOff), uint64(len(text)), 0, 0, 16, 0)
	writeShdr(&out, relaName, uint32(elf.SHT_RELA), uint64(elf.SHF_INFO_LINK),
		uint64(relaOff), uint64(rela.Len()), 3, 1, 8, relaSize)
	writeShdr(&out, symtabName, uint32(elf.SHT_SYMTAB), 0,
		uint64(symtabOff), uint64(symtab.Len()), 4, firstGlobal, 8, symSize)
	writeShdr(&out, strtabName, uint32(elf.SHT_STRTAB), 0,
		uint64(strtabOff), uint64(names.buf.Len()), 0, 0, 1, 0)
	writeShdr(&out, shstrtabName, uint32(elf.SHT_STRTAB), 0,
		uint64(shstrtabOff), uint64(shnames.buf.Len()), 0, 0, 1, 0)

	return out.Bytes(), nil
}

func symInfo(bind elf.SymBind, typ elf.SymType) byte {
	return byte(bind)<<4 | byte(typ)
}

func writeSym(buf *bytes.Buffer, name uint32, info byte, shndx uint16, value, size uint64) {
	writeU32(buf, name)
	buf.WriteByte(info)
	buf.WriteByte(0) // st_other
	writeU16(buf, shndx)
	writeU64(buf, value)
	writeU64(buf, size)
}

func writeShdr(buf *bytes.Buffer, name, typ uint32, flags, offset, size uint64, link, info uint32, addralign, entsize uint64) {
	writeU32(buf, name)
	writeU32(buf, typ)
	writeU64(buf, flags)
	writeU64(buf, 0) // sh_addr
	writeU64(buf, offset)
	writeU64(buf, size)
	writeU32(buf, link)
	writeU32(buf, info)
	writeU64(buf, addralign)
	writeU64(buf, entsize)
}

func pad(buf *bytes.Buffer, to int) {
	for buf.Len() < to {
		buf.WriteByte(0)
	}
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
