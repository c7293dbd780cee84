package trend

import (
	"bytes"
	"strings"
)

func newStringReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

func newBytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
