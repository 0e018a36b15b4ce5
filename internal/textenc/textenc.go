// Package textenc converts legacy-encoded text to UTF-8.
package textenc

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// UTF8 is the charset name reported for input that needed no conversion.
const UTF8 = "UTF-8"

// ToUTF8 returns data re-encoded as UTF-8 together with the detected charset.
// Input that is already valid UTF-8 is returned unchanged. If no candidate
// decoding succeeds, data is returned as is and changed is false.
func ToUTF8(data []byte) (out []byte, charset string, changed bool) {
	if utf8.Valid(data) {
		return data, UTF8, false
	}

	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil || len(results) == 0 {
		return data, "", false
	}

	best := -1 << 31
	for _, r := range results {
		enc := Lookup(r.Charset)
		if enc == nil {
			continue
		}
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		if score := score(decoded, r.Confidence); score > best {
			best = score
			out = decoded
			charset = r.Charset
		}
	}
	if out == nil {
		return data, "", false
	}
	return out, charset, true
}

// score rates a decoding: confidence plus letters, minus replacement and
// control characters. Kana and fullwidth forms count extra since chardet
// tends to report CJK input as a Latin charset.
func score(text []byte, confidence int) int {
	s := confidence
	for _, r := range string(text) {
		switch {
		case r == utf8.RuneError:
			s -= 10
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
			s -= 5
		case r >= 0x3040 && r <= 0x30FF, r >= 0xFF00 && r <= 0xFFEF:
			s += 5
		case r >= 0x4E00 && r <= 0x9FFF:
			s += 2
		case r >= 'A' && r <= 'z', r >= 0xC0 && r <= 0x17F:
			s++
		}
	}
	return s
}

// Lookup maps a charset name to its decoder, or nil if unknown.
func Lookup(charset string) encoding.Encoding {
	switch strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(charset)) {
	case "utf8", "ascii", "usascii":
		return unicode.UTF8
	case "utf16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "utf16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "iso88591", "latin1":
		return charmap.ISO8859_1
	case "iso88592":
		return charmap.ISO8859_2
	case "iso88595":
		return charmap.ISO8859_5
	case "iso88597":
		return charmap.ISO8859_7
	case "iso88599":
		return charmap.ISO8859_9
	case "iso885915":
		return charmap.ISO8859_15
	case "windows1250", "cp1250":
		return charmap.Windows1250
	case "windows1251", "cp1251":
		return charmap.Windows1251
	case "windows1252", "cp1252":
		return charmap.Windows1252
	case "koi8r":
		return charmap.KOI8R
	case "shiftjis", "sjis", "cp932", "windows31j":
		return japanese.ShiftJIS
	case "eucjp":
		return japanese.EUCJP
	case "iso2022jp":
		return japanese.ISO2022JP
	case "euckr", "cp949":
		return korean.EUCKR
	case "gb2312", "gbk", "cp936", "gb18030":
		return simplifiedchinese.GBK
	case "big5", "cp950":
		return traditionalchinese.Big5
	}
	return nil
}
