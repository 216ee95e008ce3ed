package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"paperbase/models"
)

// PaperInfo enthält die aus der ersten PDF-Seite geratenen Metadaten.
// Alles hier ist heuristisch und darf leer sein.
type PaperInfo struct {
	Title    string
	Authors  []models.Author
	Abstract string
}

// PDFExtractor extrahiert Text und Metadaten aus Paper-PDFs.
type PDFExtractor struct {
	MaxTextLength int
	Logger        *zap.Logger
}

// NewPDFExtractor erstellt einen neuen PDFExtractor.
func NewPDFExtractor(maxTextLength int, logger *zap.Logger) *PDFExtractor {
	return &PDFExtractor{MaxTextLength: maxTextLength, Logger: logger}
}

var (
	hyphenBreakRe  = regexp.MustCompile(`(\pL)- (\pL)`)
	punctSpacing   = regexp.MustCompile(`(\pL|\pN) +([.,;:!?])`)
	multiBlankRe   = regexp.MustCompile(`\n\s*\n\s*\n+`)
	spacesTabsRe   = regexp.MustCompile(`[ \t]+`)
	pageNumberRe   = regexp.MustCompile(`^\d+$`)
	romanNumeralRe = regexp.MustCompile(`^[IVX]+$`)
	numberedHeadRe = regexp.MustCompile(`^\d+[.\s]+[a-zA-Z]`)
	doiRe          = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)
)

// ExtractText liest den gesamten Text eines PDFs, bereinigt ihn und
// begrenzt das Ergebnis auf MaxTextLength.
func (e *PDFExtractor) ExtractText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("PDF nicht lesbar: %w", err)
	}

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Einzelne kaputte Seiten überspringen
			e.Logger.Warn("Seite nicht extrahierbar", zap.Int("page", i), zap.Error(err))
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	cleaned := CleanExtractedText(builder.String())
	if e.MaxTextLength > 0 && len(cleaned) > e.MaxTextLength {
		e.Logger.Info("Extrahierter Text gekürzt", zap.Int("max_length", e.MaxTextLength))
		cleaned = cleaned[:e.MaxTextLength]
	}

	e.Logger.Info("PDF-Text extrahiert", zap.Int("chars", len(cleaned)))
	return cleaned, nil
}

// ExtractInfo rät Titel, Autoren und Abstract aus der ersten Seite.
func (e *PDFExtractor) ExtractInfo(content []byte) (*PaperInfo, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("PDF nicht lesbar: %w", err)
	}
	if reader.NumPage() < 1 {
		return &PaperInfo{}, nil
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return &PaperInfo{}, nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return &PaperInfo{}, nil
	}

	return ExtractPaperInfo(text), nil
}

// ExtractDOI sucht in den ersten drei Seiten nach einem DOI-Muster.
func (e *PDFExtractor) ExtractDOI(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("PDF nicht lesbar: %w", err)
	}

	maxPages := 3
	if reader.NumPage() < maxPages {
		maxPages = reader.NumPage()
	}

	for i := 1; i <= maxPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, match := range doiRe.FindAllString(text, -1) {
			match = strings.TrimRight(match, ".,;:)")
			if isValidDOI(match) {
				return match, nil
			}
		}
	}

	// Kein Treffer ist kein Fehler
	return "", nil
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// CleanExtractedText normalisiert rohen PDF-Text: Silbentrennungen am
// Zeilenumbruch, Mehrfach-Whitespace, Seitenzahlen und kurze
// Kopf-/Fußzeilen werden entfernt.
func CleanExtractedText(text string) string {
	if text == "" {
		return text
	}

	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	text = spacesTabsRe.ReplaceAllString(text, " ")
	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")
	text = punctSpacing.ReplaceAllString(text, "$1$2")

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if pageNumberRe.MatchString(line) {
			continue
		}
		if len(line) < 10 {
			lower := strings.ToLower(line)
			if strings.Contains(lower, "page") || strings.Contains(lower, "vol") || romanNumeralRe.MatchString(line) {
				continue
			}
		}
		cleaned = append(cleaned, line)
	}

	return strings.Join(cleaned, "\n")
}

// ExtractPaperInfo wendet die Titel-/Autoren-/Abstract-Heuristiken auf den
// Text der ersten Seite an.
func ExtractPaperInfo(text string) *PaperInfo {
	info := &PaperInfo{}
	if text == "" {
		return info
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return info
	}

	// Titel: längste der ersten fünf Zeilen, wenn plausibel lang
	head := lines
	if len(head) > 5 {
		head = head[:5]
	}
	title := ""
	for _, line := range head {
		if len(line) > len(title) {
			title = line
		}
	}
	if len(title) > 10 && len(title) < 200 {
		info.Title = title
	}

	// Autoren: typische Namenszeilen in den ersten zehn Zeilen
	scan := lines
	if len(scan) > 10 {
		scan = scan[:10]
	}
	for _, line := range scan {
		if looksLikeAuthorLine(line) {
			for _, name := range parseAuthorLine(line) {
				info.Authors = append(info.Authors, models.Author{Name: name})
			}
		}
	}

	// Abstract: Zeilen nach der "Abstract"-Überschrift bis zum nächsten
	// Abschnitts-Header
	abstractStart := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "abstract") {
			abstractStart = i
			break
		}
	}
	if abstractStart != -1 && abstractStart+1 < len(lines) {
		var abstractLines []string
		end := abstractStart + 10
		if end > len(lines) {
			end = len(lines)
		}
		for _, line := range lines[abstractStart+1 : end] {
			if looksLikeSectionHeader(line) {
				break
			}
			abstractLines = append(abstractLines, line)
		}
		info.Abstract = strings.Join(abstractLines, " ")
	}

	return info
}

var authorLineRes = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z][a-z]+ [A-Z][a-z]+`),
	regexp.MustCompile(`^[A-Z]\. [A-Z][a-z]+`),
	regexp.MustCompile(`[A-Z][a-z]+.*@.*\.`),
	regexp.MustCompile(`^.*\s+and\s+.*$`),
}

func looksLikeAuthorLine(line string) bool {
	for _, re := range authorLineRes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

var (
	parenRe   = regexp.MustCompile(`\s*\([^)]*\)`)
	braceRe   = regexp.MustCompile(`\s*\{[^}]*\}`)
	angleRe   = regexp.MustCompile(`\s*<[^>]*>`)
	bracketRe = regexp.MustCompile(`\s*\[[^\]]*\]`)
)

func parseAuthorLine(line string) []string {
	parts := []string{line}
	for _, delim := range []string{",", " and ", " & ", ";"} {
		var next []string
		for _, part := range parts {
			next = append(next, strings.Split(part, delim)...)
		}
		parts = next
	}

	var authors []string
	for _, part := range parts {
		part = parenRe.ReplaceAllString(part, "")
		part = braceRe.ReplaceAllString(part, "")
		part = angleRe.ReplaceAllString(part, "")
		part = bracketRe.ReplaceAllString(part, "")
		part = strings.TrimSpace(part)
		if len(part) > 2 && len(part) < 50 && strings.Contains(part, " ") {
			authors = append(authors, part)
		}
	}
	return authors
}

var sectionHeaders = []string{
	"introduction", "background", "methodology", "methods",
	"results", "discussion", "conclusion", "references",
	"acknowledgments", "appendix", "keywords",
}

func looksLikeSectionHeader(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	for _, h := range sectionHeaders {
		if lower == h || strings.HasPrefix(lower, h+":") {
			return true
		}
	}
	return numberedHeadRe.MatchString(line)
}
