package main

import "fmt"

// JumpTable pairs loop brackets by command index: for an open at i matched
// with a close at j, table[i] == j and table[j] == i. Entries for non-bracket
// commands are -1. Built once by MatchLoops and immutable afterwards.
type JumpTable []int

// BracketError reports the first structurally invalid bracket: either an
// excess close, or (after the scan) the outermost open with no close.
type BracketError struct {
	Offset int // byte offset in the raw source
}

func (e *BracketError) Error() string {
	return fmt.Sprintf("unmatched bracket at offset %d", e.Offset)
}

// MatchLoops validates bracket balance over a filtered command sequence and
// produces the jump table. Single left-to-right scan with an explicit stack
// of pending open indices: push on '[', pop-and-pair on ']'.
func MatchLoops(cmds []Command) (JumpTable, error) {
	table := make(JumpTable, len(cmds))
	for i := range table {
		table[i] = -1
	}

	var stack []int
	for i, cmd := range cmds {
		switch cmd.Kind {
		case CmdLoopOpen:
			stack = append(stack, i)
		case CmdLoopClose:
			if len(stack) == 0 {
				return nil, &BracketError{Offset: cmd.Offset}
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			table[open] = i
			table[i] = open
		}
	}

	if len(stack) > 0 {
		// Remaining entries are unmatched opens; report the outermost.
		return nil, &BracketError{Offset: cmds[stack[0]].Offset}
	}

	return table, nil
}
