package syntax

import "strings"

// Error is a syntax error at a source position.
type Error struct {
	Pos Pos
	Msg string
	// AtEOF is set when the error was caused by running out of input.
	AtEOF bool
}

func (e *Error) Error() string {
	return "syntax error at " + e.Pos.String() + ": " + e.Msg
}

func (e *Error) Phase() string { return "syntax" }

// ErrorCollection accumulates syntax errors in source order.
type ErrorCollection struct {
	errors []*Error
}

func (c *ErrorCollection) Add(pos Pos, msg string) {
	c.errors = append(c.errors, &Error{Pos: pos, Msg: msg})
}

func (c *ErrorCollection) addAtEOF(pos Pos, msg string) {
	c.errors = append(c.errors, &Error{Pos: pos, Msg: msg, AtEOF: true})
}

func (c *ErrorCollection) truncate(n int) {
	c.errors = c.errors[:n]
}

func (c *ErrorCollection) HasErrors() bool { return len(c.errors) > 0 }
func (c *ErrorCollection) Len() int        { return len(c.errors) }

// Errors returns the collected errors.
func (c *ErrorCollection) Errors() []*Error { return c.errors }

// First returns the first error, or nil.
func (c *ErrorCollection) First() error {
	if len(c.errors) == 0 {
		return nil
	}
	return c.errors[0]
}

func (c *ErrorCollection) String() string {
	var b strings.Builder
	for i, e := range c.errors {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

// IsIncomplete reports whether err is a syntax error caused by the input
// ending early, so more input could complete it.
func IsIncomplete(err error) bool {
	e, ok := err.(*Error)
	return ok && e.AtEOF
}
