package at

import (
	"bufio"
	"bytes"
)

// Splitter is used for tokenizing AT command modem responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input on LF and strips the trailing CRs, so the modem's
// "\r\n" framing, the "\r\r\n" of a command echo and bare "\n" framing
// (seen on some multiplexer channels) produce the same tokens. Empty tokens
// are returned as-is; callers skip them.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimRight(data[0:i], "\r"), nil
	}

	if atEOF {
		return len(data), bytes.TrimRight(data, "\r"), nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter
