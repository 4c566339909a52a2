// Package extract splits a release document into blocks.
//
// The Extractor is a two-state machine over the document lines. While
// scanning, each line is tried against the begin template of every pattern
// in rule order; the first match opens a block bound to that pattern. Inside
// a block only the bound pattern's end template is checked; every other line
// is buffered as content. Lines outside any block are skipped.
package extract

import (
	"strings"

	"github.com/leapstack-labs/relsplit/pkg/core"
)

// State is the extractor state.
type State int

// Extractor states.
const (
	StateScanning State = iota
	StateInBlock
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "SCANNING"
	case StateInBlock:
		return "IN_BLOCK"
	default:
		return "UNKNOWN"
	}
}

// Extractor emits the blocks of one document in source order.
// Use it like bufio.Scanner:
//
//	ex := extract.New(rules, doc)
//	for ex.Next() {
//		b := ex.Block()
//		...
//	}
type Extractor struct {
	rules core.RuleSet
	lines []string
	pos   int
	state State

	// current block
	pattern *core.BlockPattern
	params  map[string]string
	begin   int
	buf     []string

	block *core.Block
	seq   int
}

// New creates an Extractor over doc.
func New(rules core.RuleSet, doc *core.Document) *Extractor {
	var lines []string
	if doc != nil {
		lines = doc.Lines
	}
	return &Extractor{rules: rules, lines: lines}
}

// Next advances to the next block. It returns false at end of input.
//
// If the input ends inside a block, the buffered lines are still emitted as
// a final block with Terminated set to false.
func (e *Extractor) Next() bool {
	e.block = nil
	for e.pos < len(e.lines) {
		raw := e.lines[e.pos]
		line := strings.TrimSpace(raw)

		switch e.state {
		case StateScanning:
			if p, params, ok := e.matchBegin(line); ok {
				e.open(p, params)
			}
			e.pos++

		case StateInBlock:
			if found, _ := e.pattern.End.Match(line); found {
				e.block = e.close(e.pos, true)
				e.pos++
				return true
			}
			e.buf = append(e.buf, raw)
			e.pos++
		}
	}

	if e.state == StateInBlock {
		end := len(e.lines) - 1
		e.block = e.close(end, false)
		return true
	}
	return false
}

// Block returns the block produced by the last call to Next.
func (e *Extractor) Block() *core.Block {
	return e.block
}

// State returns the current state.
func (e *Extractor) State() State {
	return e.state
}

// matchBegin returns the first pattern, in rule order, whose begin template
// matches line.
func (e *Extractor) matchBegin(line string) (*core.BlockPattern, map[string]string, bool) {
	for _, p := range e.rules {
		if found, captures := p.Begin.Match(line); found {
			return p, captures, true
		}
	}
	return nil, nil, false
}

func (e *Extractor) open(p *core.BlockPattern, captures map[string]string) {
	params := make(map[string]string, len(p.Params))
	for _, name := range p.Params {
		params[name] = captures[name]
	}
	for _, name := range p.Lowercase {
		if v, ok := params[name]; ok {
			params[name] = strings.ToLower(v)
		}
	}

	e.state = StateInBlock
	e.pattern = p
	e.params = params
	e.begin = e.pos
	e.buf = nil
}

func (e *Extractor) close(end int, terminated bool) *core.Block {
	e.seq++
	b := &core.Block{
		Pattern:    e.pattern,
		Params:     e.params,
		Content:    strings.TrimSpace(strings.Join(e.buf, "\n")),
		BeginLine:  e.begin,
		EndLine:    end,
		Terminated: terminated,
		Seq:        e.seq,
	}
	e.state = StateScanning
	e.pattern = nil
	e.params = nil
	e.buf = nil
	return b
}

// All extracts every block of doc.
func All(rules core.RuleSet, doc *core.Document) []*core.Block {
	var blocks []*core.Block
	ex := New(rules, doc)
	for ex.Next() {
		blocks = append(blocks, ex.Block())
	}
	return blocks
}
