package chat

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/casefile/internal/core/domain"
)

// Default layouts tried in order against the date+time token.
// Locale ambiguity (m/d vs d/m) is resolved by configuration; the
// first layout that parses wins.
var defaultLayouts = []string{
	"1/2/06, 3:04 PM",
	"1/2/06, 15:04",
	"2/1/06, 15:04",
	"1/2/06, 15:04:05",
	"2/1/06, 15:04:05",
}

// headerPattern recognises a line that starts a new message:
// "<date>, <time> - ...". Anything else is a continuation.
var headerPattern = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4},\s`)

// maxTitleLen bounds the adapter-derived title.
const maxTitleLen = 80

// Adapter parses plain-text chat exports with the line convention
// "<date>, <time> - <sender>: <message>". Continuation lines lacking
// the date prefix are appended to the previous record's body.
type Adapter struct {
	layouts []string
}

// New creates a chat log adapter. When layouts is empty the default
// layout list is used.
func New(layouts []string) *Adapter {
	if len(layouts) == 0 {
		layouts = defaultLayouts
	}
	return &Adapter{layouts: layouts}
}

// Ingest parses an exported chat file into evidence records, one per
// message. Lines with an unparseable date still produce a record with
// a nil timestamp and are reported; structurally broken header lines
// are skipped and reported. Only a file that is not decodable as text
// fails the whole ingestion.
func (a *Adapter) Ingest(_ context.Context, caseID string, export domain.ChatExport) ([]domain.EvidenceRecord, []domain.ItemError, error) {
	if !utf8.Valid(export.Content) {
		return nil, nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrParse, export.FileName)
	}

	var (
		records []domain.EvidenceRecord
		errs    []domain.ItemError
		current *domain.EvidenceRecord
	)

	scanner := bufio.NewScanner(bytes.NewReader(export.Content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if !headerPattern.MatchString(line) {
			// Continuation line: append to the previous message.
			if current != nil {
				current.Body += "\n" + line
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			errs = append(errs, domain.ItemError{
				Ref:     lineRef(export.FileName, lineNo),
				Message: "line before first message header",
			})
			continue
		}

		if current != nil {
			records = append(records, *current)
		}

		rec, itemErr := a.parseHeader(caseID, export.FileName, lineNo, line)
		if rec == nil {
			errs = append(errs, *itemErr)
			current = nil
			continue
		}
		if itemErr != nil {
			errs = append(errs, *itemErr)
		}
		current = rec
	}
	if current != nil {
		records = append(records, *current)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", domain.ErrParse, export.FileName, err)
	}

	for i := range records {
		records[i].Title = deriveTitle(records[i].Body)
	}

	return records, errs, nil
}

// parseHeader parses one "<date>, <time> - <sender>: <message>" line.
// Returns (nil, err) for a structurally broken line, (rec, err) for a
// structurally sound line whose date failed every layout, and
// (rec, nil) on full success.
func (a *Adapter) parseHeader(caseID, fileName string, lineNo int, line string) (*domain.EvidenceRecord, *domain.ItemError) {
	ref := lineRef(fileName, lineNo)

	dateTok, rest, ok := strings.Cut(line, " - ")
	if !ok {
		return nil, &domain.ItemError{Ref: ref, Message: "missing \" - \" separator"}
	}
	sender, message, ok := strings.Cut(rest, ": ")
	if !ok {
		return nil, &domain.ItemError{Ref: ref, Message: "missing \"sender: message\" segment"}
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return nil, &domain.ItemError{Ref: ref, Message: "empty sender"}
	}

	rec := &domain.EvidenceRecord{
		CaseID:       caseID,
		SourceKind:   domain.SourceChat,
		SourceRef:    ref,
		Participants: []string{sender},
		Body:         message,
		RawMetadata: map[string]any{
			"file":     fileName,
			"line":     lineNo,
			"raw_date": dateTok,
		},
	}

	ts, err := a.parseTimestamp(dateTok)
	if err != nil {
		// The message is still evidence; it just cannot be placed.
		return rec, &domain.ItemError{
			Ref:     ref,
			Message: fmt.Sprintf("unparseable date %q", dateTok),
		}
	}
	rec.Timestamp = &ts
	return rec, nil
}

// parseTimestamp tries the configured layouts in order.
func (a *Adapter) parseTimestamp(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	for _, layout := range a.layouts {
		if ts, err := time.Parse(layout, token); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", token)
}

// lineRef builds the adapter-specific source reference from the file
// name and the header line offset.
func lineRef(fileName string, lineNo int) string {
	return fmt.Sprintf("%s#L%d", fileName, lineNo)
}

// deriveTitle produces the short human label from the message body.
func deriveTitle(body string) string {
	title := body
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen-3]) + "..."
	}
	return strings.TrimSpace(title)
}
