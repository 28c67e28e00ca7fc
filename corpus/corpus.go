// Package corpus extracts end-to-end test programs from Markdown documents.
// A corpus file holds named cases: a heading of the form "Test: <name>"
// followed by a ```brainfuck fence with the program, an optional ```input
// fence with the bytes fed to the program, and a ```output fence with the
// exact bytes the program must produce.
//
// Every line of a fence carries its own terminating newline, so the final
// newline of the input and output fences is stripped: an expected output
// that itself ends in a newline is written with one extra blank line.
package corpus

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	fenceProgram = "brainfuck"
	fenceInput   = "input"
	fenceOutput  = "output"
)

// Case is one extracted test program.
type Case struct {
	Name      string
	Program   string
	Input     string
	HasOutput bool
	Output    string
}

// Extract parses a Markdown document and returns all test cases in order.
// Fences with unknown languages, fences outside a test case, and cases
// missing a program or output fence are errors.
func Extract(markdownContent string) ([]Case, error) {
	md := goldmark.New()
	source := []byte(markdownContent)

	doc := md.Parser().Parse(text.NewReader(source))

	var cases []Case
	var current *Case

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			headingText := extractText(n, source)
			if strings.HasPrefix(headingText, "Test: ") {
				if current != nil {
					if err := validateCase(current); err != nil {
						return ast.WalkStop, err
					}
					cases = append(cases, *current)
				}
				current = &Case{Name: strings.TrimPrefix(headingText, "Test: ")}
			}

		case *ast.FencedCodeBlock:
			language := string(n.Language(source))
			content := fenceContent(n, source)
			line := lineNumber(n, source)

			if language == "" {
				// Plain code blocks are commentary.
				return ast.WalkContinue, nil
			}
			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, language)
			}

			switch language {
			case fenceProgram:
				if current.Program != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple program fences in test '%s'", line, current.Name)
				}
				current.Program = content
			case fenceInput:
				current.Input = strings.TrimSuffix(content, "\n")
			case fenceOutput:
				if current.HasOutput {
					return ast.WalkStop, fmt.Errorf("line %d: multiple output fences in test '%s'", line, current.Name)
				}
				current.HasOutput = true
				current.Output = strings.TrimSuffix(content, "\n")
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", line, language, current.Name)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if current != nil {
		if err := validateCase(current); err != nil {
			return nil, err
		}
		cases = append(cases, *current)
	}

	return cases, nil
}

func validateCase(c *Case) error {
	if c.Program == "" {
		return fmt.Errorf("test '%s' has no program fence", c.Name)
	}
	if !c.HasOutput {
		return fmt.Errorf("test '%s' has no output fence", c.Name)
	}
	return nil
}

// extractText extracts plain text content from a markdown node.
func extractText(node ast.Node, source []byte) string {
	var buf bytes.Buffer

	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})

	return buf.String()
}

// fenceContent extracts the content of a fenced code block.
func fenceContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer

	for i := 0; i < codeBlock.Lines().Len(); i++ {
		line := codeBlock.Lines().At(i)
		buf.Write(line.Value(source))
	}

	return buf.String()
}

// lineNumber calculates the line number of a given AST node.
func lineNumber(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	startPos := node.Lines().At(0).Start
	lineNum := 1
	for i := 0; i < startPos && i < len(source); i++ {
		if source[i] == '\n' {
			lineNum++
		}
	}
	return lineNum
}
