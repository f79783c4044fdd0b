package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
)

// AllowedDocumentExt reports whether an upload's extension is accepted.
func AllowedDocumentExt(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".doc", ".docx":
		return true
	}
	return false
}

// Document extracts every recipe found in an uploaded file. The returned
// source type is "pdf" or "docx" depending on the format.
func Document(filename string, data []byte) ([]models.ExtractedRecipeData, string, error) {
	var (
		text       string
		sourceType string
		err        error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		sourceType = "pdf"
		text, err = pdfText(data)
	case ".docx":
		sourceType = "docx"
		text, err = docxText(data)
	case ".doc":
		sourceType = "docx"
		text = legacyDocText(data)
	default:
		return nil, "", apperr.Newf(apperr.KindValidation, "unsupported document type %q", filepath.Ext(filename))
	}
	if err != nil {
		return nil, "", err
	}

	recipes := ParseRecipes(text)
	if len(recipes) == 0 {
		return nil, "", apperr.Newf(apperr.KindParse, "no recipe found in %s", filename)
	}
	for i := range recipes {
		recipes[i].SourceType = sourceType
	}
	return recipes, sourceType, nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.Wrap(apperr.KindParse, "open pdf", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", apperr.Wrap(apperr.KindParse, "extract pdf text", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", apperr.Wrap(apperr.KindParse, "read pdf text", err)
	}
	return buf.String(), nil
}

// docxText pulls paragraph text out of word/document.xml. A docx file is a
// zip archive; each w:p becomes one line.
func docxText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperr.Wrap(apperr.KindParse, "open docx", err)
	}
	var docXML io.ReadCloser
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", apperr.Wrap(apperr.KindParse, "open docx document", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", apperr.New(apperr.KindParse, "docx has no word/document.xml")
	}
	defer docXML.Close()

	var buf strings.Builder
	decoder := xml.NewDecoder(docXML)
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", apperr.Wrap(apperr.KindParse, "parse docx xml", err)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				buf.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return buf.String(), nil
}

// legacyDocText salvages printable runs from a binary .doc file. The old
// format has no cheap structured parser; runs of printable characters are
// usually enough for the heuristic recipe parser to work with.
func legacyDocText(data []byte) string {
	var lines []string
	var run strings.Builder
	flush := func() {
		// Runs shorter than 4 printable bytes are control noise.
		if run.Len() >= 4 {
			lines = append(lines, run.String())
		}
		run.Reset()
	}
	for _, b := range data {
		if b >= 32 && b < 127 {
			run.WriteByte(b)
			continue
		}
		flush()
	}
	flush()
	return strings.Join(lines, "\n")
}

// DocumentMetadata describes one processed upload for the response body.
type DocumentMetadata struct {
	Filename    string `json:"filename"`
	SizeBytes   int    `json:"sizeBytes"`
	SourceType  string `json:"sourceType"`
	RecipeCount int    `json:"recipeCount"`
}

// NewDocumentMetadata fills the metadata block for a processed upload.
func NewDocumentMetadata(filename string, size int, sourceType string, count int) DocumentMetadata {
	return DocumentMetadata{
		Filename:    filename,
		SizeBytes:   size,
		SourceType:  sourceType,
		RecipeCount: count,
	}
}
