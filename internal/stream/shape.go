package stream

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ShapeKind tags what a decoded line or body turned out to be
type ShapeKind int

const (
	// ShapeSkip carries no reply text: blank lines, event-stream framing,
	// JSON values that are not items.
	ShapeSkip ShapeKind = iota
	// ShapeItem is an NDJSON {"type":"item","content":"..."} fragment.
	ShapeItem
	// ShapePlainText is a non-JSON line taken verbatim.
	ShapePlainText
	// ShapeDocument is a whole-body JSON reply with output, text or response.
	ShapeDocument
	// ShapeRaw is a whole body that could not be read as a document.
	ShapeRaw
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSkip:
		return "skip"
	case ShapeItem:
		return "item"
	case ShapePlainText:
		return "plain_text"
	case ShapeDocument:
		return "document"
	case ShapeRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Shape is the classification of a line or body together with its text
type Shape struct {
	Kind ShapeKind
	Text string
}

const eventStreamPrefix = "data:"

// documentFields are probed in priority order on whole-body replies
var documentFields = []string{"output", "text", "response"}

// ClassifyLine classifies a single line of a streamed reply
func ClassifyLine(line string) Shape {
	line = strings.TrimSpace(line)
	if line == "" {
		return Shape{Kind: ShapeSkip}
	}

	if gjson.Valid(line) {
		parsed := gjson.Parse(line)
		if !parsed.IsObject() || parsed.Get("type").String() != "item" {
			return Shape{Kind: ShapeSkip}
		}
		content := parsed.Get("content")
		if content.Type != gjson.String {
			return Shape{Kind: ShapeSkip}
		}
		return Shape{Kind: ShapeItem, Text: content.String()}
	}

	if strings.HasPrefix(line, "{") || strings.HasPrefix(line, eventStreamPrefix) {
		return Shape{Kind: ShapeSkip}
	}
	return Shape{Kind: ShapePlainText, Text: line}
}

// ClassifyBody classifies a complete reply body that yielded no streamed text
func ClassifyBody(body string) Shape {
	body = strings.TrimSpace(body)
	if body == "" {
		return Shape{Kind: ShapeRaw}
	}

	if gjson.Valid(body) {
		parsed := gjson.Parse(body)
		if parsed.IsArray() {
			parsed = parsed.Get("0")
		}
		if parsed.IsObject() {
			for _, field := range documentFields {
				value := parsed.Get(field)
				if value.Type == gjson.String && value.String() != "" {
					return Shape{Kind: ShapeDocument, Text: value.String()}
				}
			}
		}
	}

	return Shape{Kind: ShapeRaw, Text: body}
}
