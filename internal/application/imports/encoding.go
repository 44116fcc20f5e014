package imports

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const (
	sampleSize     = 10000
	minConfidence  = 70 // chardet reports 0..100
	defaultCharset = "latin-1"
)

var (
	// tried in order when detection is inconclusive
	fallbackCharsets = []string{"latin-1", "cp1252", "iso-8859-1", "utf-8"}
	// tried in order when the detected charset fails to decode the file
	retryCharsets = []string{"latin-1", "cp1252", "iso-8859-1"}

	utf8BOM = []byte{0xEF, 0xBB, 0xBF}

	errUndecodable = errors.New("undecodable input")
)

// DetectEncoding guesses the charset of a delimited text file from its first bytes.
// Low-confidence or missing detections fall back to the first candidate that decodes the
// sample; latin-1 decodes anything so it is also the final default.
func DetectEncoding(sample []byte) string {
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	name, confidence := "", 0
	if res, err := chardet.NewTextDetector().DetectBest(sample); err == nil && res != nil {
		name, confidence = res.Charset, res.Confidence
	}
	return resolveEncoding(sample, name, confidence)
}

func resolveEncoding(sample []byte, detected string, confidence int) string {
	if detected != "" && confidence >= minConfidence {
		return detected
	}
	for _, name := range fallbackCharsets {
		if _, err := decode(sample, name); err == nil {
			return name
		}
	}
	if detected != "" {
		return detected
	}
	return defaultCharset
}

// decode converts data in the named charset to a UTF-8 string.
func decode(data []byte, name string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "utf-8" || key == "utf8" || key == "ascii" || key == "us-ascii" {
		if !utf8.Valid(data) {
			return "", errUndecodable
		}
		return string(data), nil
	}
	enc, err := lookupCharset(key)
	if err != nil {
		return "", err
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.ContainsRune(data, utf8.RuneError) {
		return "", errUndecodable
	}
	return string(out), nil
}

func lookupCharset(key string) (encoding.Encoding, error) {
	switch key {
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, errUndecodable
	}
	return enc, nil
}

// decodeWithRetry decodes data with the detected charset, then with each retry charset.
// It returns the text and the charset that worked.
func decodeWithRetry(data []byte, detected string) (string, string, error) {
	if text, err := decode(data, detected); err == nil {
		return text, detected, nil
	}
	for _, name := range retryCharsets {
		if text, err := decode(data, name); err == nil {
			return text, name, nil
		}
	}
	return "", "", ErrEncodingUnresolvable
}
