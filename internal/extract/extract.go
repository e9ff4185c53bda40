// Package extract turns uploaded resume documents into plain text.
package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"baliance.com/gooxml/document"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/text/unicode/norm"

	apperrors "resumeforge/internal/errors"
)

const (
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypePDF  = "application/pdf"
)

// AllowedMediaTypes is the upload allow-list.
var AllowedMediaTypes = []string{MediaTypeDOCX, MediaTypePDF}

const pdfUnavailableMessage = "PDF text extraction is not available. Please upload a DOCX file instead."

// TextExtractor is what request handlers depend on.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (string, error)
}

// Extractor extracts text from DOCX documents.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// IsAllowed reports whether mediaType is in the accepted set.
func IsAllowed(mediaType string) bool {
	for _, allowed := range AllowedMediaTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// NormalizeMediaType strips parameters from the declared type and falls back
// to the file extension when the declaration is missing or generic.
func NormalizeMediaType(declared, filename string) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if mt != "" && mt != "application/octet-stream" {
		return mt
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return MediaTypeDOCX
	case ".pdf":
		return MediaTypePDF
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	}
	return mt
}

// Extract returns the trimmed, NFC-normalised text of the document.
func (e *Extractor) Extract(ctx context.Context, data []byte, mediaType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch mediaType {
	case MediaTypeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return "", apperrors.NewExtractionError(apperrors.ErrCodeParseFailure,
				"Could not read the document. Please make sure it is a valid DOCX file.", err)
		}
		text = strings.TrimSpace(norm.NFC.String(text))
		if text == "" {
			return "", apperrors.NewExtractionError(apperrors.ErrCodeCorruptOrEmpty,
				"No text could be extracted from the document.", nil)
		}
		return text, nil
	case MediaTypePDF:
		return "", apperrors.NewExtractionError(apperrors.ErrCodeCorruptOrEmpty, pdfUnavailableMessage, nil)
	default:
		return "", apperrors.NewExtractionError(apperrors.ErrCodeUnsupportedFormat,
			"Unsupported file type. Only DOCX and PDF files are accepted.", nil).
			WithContext("media_type", mediaType)
	}
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty document")
	}
	text, err := readWithGooxml(data)
	if err == nil {
		return text, nil
	}
	fallback, fbErr := readWithDocx(data)
	if fbErr != nil {
		return "", errors.Join(err, fbErr)
	}
	return fallback, nil
}

func readWithGooxml(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	writeParagraphs(&b, doc.Paragraphs())
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			for _, cell := range row.Cells() {
				writeParagraphs(&b, cell.Paragraphs())
			}
		}
	}
	return b.String(), nil
}

func writeParagraphs(b *strings.Builder, paragraphs []document.Paragraph) {
	for _, p := range paragraphs {
		for _, r := range p.Runs() {
			b.WriteString(r.Text())
		}
		b.WriteByte('\n')
	}
}

func readWithDocx(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()

	return stripWordML(doc.Editable().GetContent())
}

// stripWordML reduces document.xml markup to text: w:t content is kept,
// w:tab becomes a tab and each closing w:p ends a line.
func stripWordML(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
