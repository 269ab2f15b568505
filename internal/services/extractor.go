package services

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

var (
	ErrUnsupportedFormat = errors.New("Unsupported file format. Please upload a PDF, Word, or text file.")
	ErrNoTextExtracted   = errors.New("failed to extract meaningful text from document")
)

// minPDFTextLength is the point below which the primary PDF reader is considered to have failed.
const minPDFTextLength = 100

var supportedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".txt":  "text/plain",
}

type TextExtractor interface {
	Extract(filename string, data []byte) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

// IsSupportedFile reports whether the filename has an extension the extractor reads.
func IsSupportedFile(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ContentTypeFor maps a filename to the content type stored with the file.
func ContentTypeFor(filename string) string {
	if ct, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

func (e *textExtractor) Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx", ".doc":
		return extractWord(data)
	case ".txt":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text file is not valid UTF-8: %w", ErrNoTextExtracted)
		}
		text := CleanText(string(data))
		if text == "" {
			return "", ErrNoTextExtracted
		}
		return text, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

func extractPDF(data []byte) (string, error) {
	text, err := extractPDFPlain(data)
	if err != nil {
		log.Printf("⚠️ Primary PDF extraction failed: %v\n", err)
	}

	if nonSpaceLen(text) < minPDFTextLength {
		fallback, fbErr := extractPDFWithMuPDF(data)
		if fbErr != nil {
			log.Printf("⚠️ MuPDF fallback extraction failed: %v\n", fbErr)
		}
		if nonSpaceLen(fallback) > nonSpaceLen(text) {
			text = fallback
		}
	}

	if nonSpaceLen(text) < minPDFTextLength {
		return "", ErrNoTextExtracted
	}

	return CleanText(text), nil
}

func extractPDFPlain(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panicked: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

func extractPDFWithMuPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF with MuPDF: %w", err)
	}
	defer doc.Close()

	var textBuilder strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		pageText, err := doc.Text(n)
		if err != nil {
			continue
		}
		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

var (
	wordParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]+>`)
)

func extractWord(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse word document: %w", ErrNoTextExtracted)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = wordParagraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	text := CleanText(content)
	if text == "" {
		return "", ErrNoTextExtracted
	}
	return text, nil
}

// CleanText trims every line and collapses runs of blank lines into one.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" && (len(cleanedLines) == 0 || cleanedLines[len(cleanedLines)-1] == "") {
			continue
		}
		cleanedLines = append(cleanedLines, line)
	}

	return strings.Join(cleanedLines, "\n")
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			n++
		}
	}
	return n
}
