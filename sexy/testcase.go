package sexy

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// InputType represents the type of input code fence in a Sexy test
type InputType string

const (
	InputTypeExpr    InputType = "wayto-expr"
	InputTypeProgram InputType = "wayto-program"
)

// AssertionType represents the type of assertion code fence in a Sexy test
type AssertionType string

const (
	AssertionTypeAST          AssertionType = "ast"
	AssertionTypeTypes        AssertionType = "types"
	AssertionTypeExecute      AssertionType = "execute"
	AssertionTypeResult       AssertionType = "result"
	AssertionTypeCompileError AssertionType = "compile-error"
	AssertionTypeInput        AssertionType = "input"
)

// textAssertions are compared as plain text rather than parsed as Sexy.
var textAssertions = map[AssertionType]bool{
	AssertionTypeExecute:      true,
	AssertionTypeResult:       true,
	AssertionTypeCompileError: true,
}

// Assertion represents a single assertion in a Sexy test
type Assertion struct {
	Type       AssertionType
	Content    string // raw fence content without the trailing newline
	ParsedSexy *Node  // nil for text assertions
	Line       int
}

// TestCase represents a complete Sexy test case extracted from Markdown
type TestCase struct {
	Name       string    // heading text after "Test: "
	Input      string    // source code from the input fence
	InputType  InputType // wayto-expr or wayto-program
	InputData  string    // stdin for execution, from an input fence
	Assertions []Assertion
	Line       int
}

// Assertion returns the first assertion of type typ.
func (tc *TestCase) Assertion(typ AssertionType) (Assertion, bool) {
	for _, a := range tc.Assertions {
		if a.Type == typ {
			return a, true
		}
	}
	return Assertion{}, false
}

// NeedsExecution reports whether the test runs the compiled program.
func (tc *TestCase) NeedsExecution() bool {
	_, execute := tc.Assertion(AssertionTypeExecute)
	_, result := tc.Assertion(AssertionTypeResult)
	return execute || result
}

// ExtractFile reads a markdown file and extracts its test cases.
func ExtractFile(path string) ([]TestCase, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cases, err := ExtractTestCases(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

type extractor struct {
	source  []byte
	cases   []TestCase
	current *TestCase
}

// ExtractTestCases parses a Markdown document and extracts all Sexy test
// cases. A test starts at a heading "Test: name" and owns the fences up to
// the next such heading.
func ExtractTestCases(markdownContent string) ([]TestCase, error) {
	e := &extractor{source: []byte(markdownContent)}
	doc := goldmark.New().Parser().Parse(text.NewReader(e.source))

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			headingText := extractTextFromNode(n, e.source)
			if name, ok := strings.CutPrefix(headingText, "Test: "); ok {
				if err := e.finish(); err != nil {
					return ast.WalkStop, err
				}
				e.current = &TestCase{Name: name, Line: lineOf(n, e.source)}
			}
		case *ast.FencedCodeBlock:
			if err := e.addFence(n); err != nil {
				return ast.WalkStop, err
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}
	if err := e.finish(); err != nil {
		return nil, err
	}
	return e.cases, nil
}

func (e *extractor) addFence(n *ast.FencedCodeBlock) error {
	language := string(n.Language(e.source))
	content := extractCodeBlockContent(n, e.source)
	lineNum := lineOf(n, e.source)
	known := isInputFence(language) || isAssertionFence(language)

	if e.current == nil {
		switch {
		case language == "":
			// Plain code blocks document the format.
			return nil
		case known:
			return fmt.Errorf("line %d: %s fence found outside of test case", lineNum, language)
		default:
			return fmt.Errorf("line %d: unknown fence language '%s' found outside of test case", lineNum, language)
		}
	}
	tc := e.current

	switch {
	case language == "":
		return nil
	case !known:
		return fmt.Errorf("line %d: unknown fence language '%s' in test '%s'", lineNum, language, tc.Name)
	case isInputFence(language):
		if tc.Input != "" {
			return fmt.Errorf("line %d: multiple input fences found in test '%s'", lineNum, tc.Name)
		}
		tc.Input = strings.TrimRight(content, "\n")
		tc.InputType = InputType(language)
	case AssertionType(language) == AssertionTypeInput:
		if tc.InputData != "" {
			return fmt.Errorf("line %d: multiple input fences found in test '%s'", lineNum, tc.Name)
		}
		tc.InputData = content
	default:
		assertion := Assertion{
			Type:    AssertionType(language),
			Content: strings.TrimRight(content, "\n"),
			Line:    lineNum,
		}
		if !textAssertions[assertion.Type] {
			parsed, err := Parse(assertion.Content)
			if err != nil {
				return fmt.Errorf("line %d: failed to parse Sexy assertion in test '%s': %w", lineNum, tc.Name, err)
			}
			assertion.ParsedSexy = parsed
		}
		tc.Assertions = append(tc.Assertions, assertion)
	}
	return nil
}

// finish validates the current test case and stores it.
func (e *extractor) finish() error {
	if e.current == nil {
		return nil
	}
	if err := validateTestCase(e.current); err != nil {
		return err
	}
	e.cases = append(e.cases, *e.current)
	e.current = nil
	return nil
}

// extractTextFromNode extracts plain text content from a markdown node
func extractTextFromNode(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if text, ok := n.(*ast.Text); ok {
				buf.Write(text.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

// extractCodeBlockContent extracts the content from a fenced code block
func extractCodeBlockContent(codeBlock *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < codeBlock.Lines().Len(); i++ {
		line := codeBlock.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func isInputFence(language string) bool {
	return language == string(InputTypeExpr) || language == string(InputTypeProgram)
}

func isAssertionFence(language string) bool {
	switch AssertionType(language) {
	case AssertionTypeAST, AssertionTypeTypes, AssertionTypeExecute,
		AssertionTypeResult, AssertionTypeCompileError, AssertionTypeInput:
		return true
	}
	return false
}

// validateTestCase ensures a test case has both input and at least one assertion
func validateTestCase(tc *TestCase) error {
	if tc.Input == "" {
		return fmt.Errorf("test '%s' has no input fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", tc.Name)
	}
	return nil
}

// lineOf returns the 1-based line on which node's content starts.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	return bytes.Count(source[:node.Lines().At(0).Start], []byte("\n")) + 1
}
