package parsers

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/models"
	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/pkg/errors"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Body and subject streams of an Outlook message container
const (
	unicodeBodyStream    = "__substg1.0_1000001F"
	ansiBodyStream       = "__substg1.0_1000001E"
	unicodeSubjectStream = "__substg1.0_0037001F"
	ansiSubjectStream    = "__substg1.0_0037001E"
)

// Encoding names reported on RawMessage
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF16LE = "utf-16le"
	EncodingLatin1  = "latin-1"
	EncodingANSI    = "windows-1252"
)

// MessageDecoder turns message files into plain text
type MessageDecoder struct{}

// NewMessageDecoder creates a decoder
func NewMessageDecoder() *MessageDecoder {
	return &MessageDecoder{}
}

// Decode reads a file and returns its text body
func (d *MessageDecoder) Decode(path string) (models.RawMessage, error) {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return models.RawMessage{}, errors.ExtractionError(errors.CodeDecodeFailed, name, err)
	}

	return d.DecodeContent(name, data)
}

// DecodeContent decodes already-read bytes. Compound containers yield their
// body followed by the subject line; anything else, and containers whose body
// and subject are both blank, go through DecodeBytes.
func (d *MessageDecoder) DecodeContent(name string, data []byte) (models.RawMessage, error) {
	if text, enc, ok := containerText(data); ok {
		return models.RawMessage{FileName: name, Text: text, Encoding: "msg/" + enc}, nil
	}

	text, enc := DecodeBytes(data)
	return models.RawMessage{FileName: name, Text: text, Encoding: enc}, nil
}

// containerText returns body + "\n" + subject. It reports false when data is
// not a compound file or both properties are blank.
func containerText(data []byte) (string, string, bool) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", "", false
	}

	streams := make(map[string][]byte)
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		// attachments and recipients live in sub-storages
		if len(entry.Path) != 0 {
			continue
		}
		switch entry.Name {
		case unicodeBodyStream, ansiBodyStream, unicodeSubjectStream, ansiSubjectStream:
			streams[entry.Name] = readStream(entry)
		}
	}

	body, enc := decodeProperty(streams[unicodeBodyStream], streams[ansiBodyStream])
	subject, subjectEnc := decodeProperty(streams[unicodeSubjectStream], streams[ansiSubjectStream])

	text := body + "\n" + subject
	if strings.TrimSpace(text) == "" {
		return "", "", false
	}
	if enc == "" {
		enc = subjectEnc
	}
	return text, enc, true
}

// decodeProperty prefers the UTF-16 stream of a property over its 8-bit one
func decodeProperty(unicodeData, ansiData []byte) (string, string) {
	if len(unicodeData) > 0 {
		text, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(unicodeData)
		if err == nil {
			return trimNulls(string(text)), EncodingUTF16LE
		}
	}
	if len(ansiData) > 0 {
		if utf8.Valid(ansiData) {
			return trimNulls(string(ansiData)), EncodingUTF8
		}
		text, err := charmap.Windows1252.NewDecoder().Bytes(ansiData)
		if err == nil {
			return trimNulls(string(text)), EncodingANSI
		}
	}
	return "", ""
}

func readStream(entry *mscfb.File) []byte {
	buf := make([]byte, entry.Size)
	n, err := io.ReadFull(entry, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil
	}
	return buf[:n]
}

func trimNulls(s string) string {
	return strings.TrimRight(s, "\x00")
}

// DecodeBytes decodes raw bytes with the fallback order UTF-16 (BOM or
// NUL-dense), UTF-8, lenient UTF-8, Latin-1. It never fails.
func DecodeBytes(data []byte) (string, string) {
	if hasUTF16BOM(data) {
		text, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder().Bytes(data)
		if err == nil {
			return trimNulls(string(text)), EncodingUTF16LE
		}
	}

	nulls := bytes.Count(data, []byte{0})
	if nulls == 0 && utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff"), EncodingUTF8
	}

	if len(data) >= 2 && nulls*4 >= len(data) {
		text, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
		if err == nil {
			return trimNulls(string(text)), EncodingUTF16LE
		}
	}

	if lenient := strings.ToValidUTF8(strings.ReplaceAll(string(data), "\x00", ""), ""); strings.TrimSpace(lenient) != "" {
		return lenient, EncodingUTF8
	}

	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), ""), EncodingUTF8
	}
	return string(text), EncodingLatin1
}

func hasUTF16BOM(data []byte) bool {
	return len(data) >= 2 && ((data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF))
}
