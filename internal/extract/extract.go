package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrNoText      = errors.New("no text extracted")
)

var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// Supported reports whether name has an extension we can read, and its MIME type.
func Supported(name string) (string, bool) {
	mt, ok := mimeByExt[strings.ToLower(filepath.Ext(name))]
	return mt, ok
}

// FromFile returns the plain text of a PDF, DOCX or TXT document.
func FromFile(name string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err = fromPDF(data)
	case ".docx":
		text, err = fromDOCX(data)
	case ".txt":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("txt: invalid utf-8")
		}
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
	if err != nil {
		return "", err
	}

	text = normalize(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func fromPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

var (
	paraEndRe = regexp.MustCompile(`</w:p>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
)

func fromDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = paraEndRe.ReplaceAllString(content, "\n")
	content = tagRe.ReplaceAllString(content, "")
	return xmlUnescape(content), nil
}

var xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

func xmlUnescape(s string) string { return xmlEntities.Replace(s) }

var (
	spaceRe     = regexp.MustCompile(`[ \t\f\v\r]+`)
	blankLineRe = regexp.MustCompile(`\n{3,}`)
)

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = spaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
