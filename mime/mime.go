// Package nntpmime decodes and builds the MIME parts of news articles:
// encoded-word header values, article bodies with attachments, and
// composed articles for posting.
package nntpmime

import (
	"fmt"
	"io"
	"mime"

	"golang.org/x/text/encoding/ianaindex"
)

type unknownCharsetError string

func (e unknownCharsetError) Error() string {
	return fmt.Sprintf("unhandled charset %q", string(e))
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil || enc == nil {
		return nil, unknownCharsetError(charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

var wordDecoder = mime.WordDecoder{CharsetReader: charsetReader}

// DecodeHeader decodes RFC 2047 encoded-words in s. Values that fail to
// decode are returned unchanged.
func DecodeHeader(s string) string {
	d, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return d
}
