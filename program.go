package main

// CommandKind identifies one of the eight brainfuck commands.
type CommandKind byte

const (
	CmdRight CommandKind = iota // >
	CmdLeft                     // <
	CmdInc                      // +
	CmdDec                      // -
	CmdOutput                   // .
	CmdInput                    // ,
	CmdLoopOpen                 // [
	CmdLoopClose                // ]
)

// Command is a single source command plus the byte offset it was read from.
// The offset is only used for diagnostics.
type Command struct {
	Kind   CommandKind
	Offset int
}

// Filter strips every byte that is not one of the eight command characters,
// preserving command order and source offsets. It cannot fail; any input,
// including empty, yields a (possibly empty) command sequence.
func Filter(source []byte) []Command {
	var cmds []Command
	for i, c := range source {
		var kind CommandKind
		switch c {
		case '>':
			kind = CmdRight
		case '<':
			kind = CmdLeft
		case '+':
			kind = CmdInc
		case '-':
			kind = CmdDec
		case '.':
			kind = CmdOutput
		case ',':
			kind = CmdInput
		case '[':
			kind = CmdLoopOpen
		case ']':
			kind = CmdLoopClose
		default:
			continue // commentary
		}
		cmds = append(cmds, Command{Kind: kind, Offset: i})
	}
	return cmds
}
