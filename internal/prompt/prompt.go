// Package prompt renders a send request into the text typed into the
// agent's terminal.
package prompt

import (
	"fmt"
	"strings"

	"github.com/timvw/pigeon/internal/model"
)

// DefaultQuestion is used when the caller left the question empty.
const DefaultQuestion = "Explain this code"

// Build renders the location header, the fenced code and the question.
// Code and question are copied byte for byte.
func Build(req *model.SendRequest) string {
	var b strings.Builder

	b.WriteString(Location(req))
	b.WriteByte('\n')

	b.WriteString("```\n")
	b.WriteString(req.Code)
	b.WriteString("\n```\n")

	if req.Question != "" {
		b.WriteString(req.Question)
	} else {
		b.WriteString(DefaultQuestion)
	}
	return b.String()
}

// Location renders "file[:start[-end]][ (deleted lines)]".
func Location(req *model.SendRequest) string {
	loc := req.File
	switch {
	case req.StartLine > 0 && req.EndLine > 0 && req.EndLine != req.StartLine:
		loc += fmt.Sprintf(":%d-%d", req.StartLine, req.EndLine)
	case req.StartLine > 0:
		loc += fmt.Sprintf(":%d", req.StartLine)
	}
	if req.Side == model.SideOld {
		loc += " (deleted lines)"
	}
	return loc
}
