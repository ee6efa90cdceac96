package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"go-history-harvester/internal/classad"
)

const maxLineSize = 4 * 1024 * 1024

// lineIterator decodes one ad per line from r.
type lineIterator struct {
	source  string
	r       io.ReadCloser
	scanner *bufio.Scanner
	match   matcher
	line    int
	current classad.Record
	err     error
	done    bool
}

func newLineIterator(source string, r io.ReadCloser, q Query) *lineIterator {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &lineIterator{source: source, r: r, scanner: scanner, match: matcher{q: q}}
}

func (it *lineIterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	for {
		if err := ctx.Err(); err != nil {
			return it.fail(err)
		}
		if it.match.exhausted() {
			return it.finish()
		}
		if !it.scanner.Scan() {
			if err := it.scanner.Err(); err != nil {
				return it.fail(err)
			}
			return it.finish()
		}
		it.line++
		line := bytes.TrimSpace(it.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ad, err := classad.Parse(line)
		if err != nil {
			return it.fail(fmt.Errorf("line %d: %w", it.line, err))
		}
		if !it.match.accept(ad) {
			continue
		}
		it.current = ad
		return true
	}
}

func (it *lineIterator) fail(err error) bool {
	it.err = &StreamError{Source: it.source, Err: err}
	return it.finish()
}

func (it *lineIterator) finish() bool {
	it.done = true
	it.current = nil
	return false
}

func (it *lineIterator) Record() classad.Record { return it.current }

func (it *lineIterator) Err() error { return it.err }

func (it *lineIterator) Close() error {
	it.done = true
	return it.r.Close()
}
