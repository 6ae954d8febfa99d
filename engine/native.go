package engine

import (
	"context"
	"errors"
	"io"
	"regexp"
	"slices"
	"strings"
	"unicode/utf16"

	"golang.org/x/net/html"

	"github.com/konradmalik/htmllint-ls/types"
)

var formats = map[string]*regexp.Regexp{
	"lowercase":  regexp.MustCompile(`^[a-z][a-z\d]*$`),
	"underscore": regexp.MustCompile(`^[a-z][a-z\d]*(_[a-z\d]+)*$`),
	"dash":       regexp.MustCompile(`^[a-z][a-z\d]*(-[a-z\d]+)*$`),
	"camel":      regexp.MustCompile(`^[a-zA-Z][a-zA-Z\d]*$`),
}

// elements whose content is not subject to indentation rules
var verbatimElements = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

// Native lints HTML in process using the x/net/html tokenizer.
type Native struct{}

func NewNative() *Native {
	return &Native{}
}

type attribute struct {
	name     string // as written
	value    string
	hasValue bool
	offset   int
}

type tag struct {
	name   string
	offset int
	attrs  []attribute
}

type source struct {
	text       string
	lineStarts []int
}

func newSource(text string) *source {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &source{text: text, lineStarts: starts}
}

// position returns the 0-based line and the 0-based column (in UTF-16 code units) of a byte offset.
func (s *source) position(offset int) (int, int) {
	line, found := slices.BinarySearch(s.lineStarts, offset)
	if !found {
		line--
	}
	col := 0
	for _, r := range s.text[s.lineStarts[line]:offset] {
		col += utf16.RuneLen(r)
	}
	return line, col
}

func (s *source) line(offset int) int {
	l, _ := s.position(offset)
	return l
}

func (n *Native) Lint(ctx context.Context, doc Document, config types.LintConfig) ([]types.Issue, error) {
	opts, err := parseOptions(config)
	if err != nil {
		return nil, err
	}

	src := newSource(doc.Text)
	tags, verbatim, err := tokenize(ctx, src)
	if err != nil {
		return nil, err
	}

	issues := make([]types.Issue, 0)
	issues = append(issues, checkIndentation(src, verbatim, opts)...)

	ids := make(map[string]bool)
	for _, t := range tags {
		issues = append(issues, checkTag(src, t, opts, ids)...)
	}

	slices.SortStableFunc(issues, func(a, b types.Issue) int {
		if a.Line != b.Line {
			return a.Line - b.Line
		}
		return a.Column - b.Column
	})
	return issues, nil
}

// tokenize collects the start tags of the document and the lines that belong to verbatim content.
func tokenize(ctx context.Context, src *source) ([]tag, map[int]bool, error) {
	z := html.NewTokenizer(strings.NewReader(src.text))
	tags := make([]tag, 0)
	verbatim := make(map[int]bool)
	open := ""
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return nil, nil, z.Err()
		}

		raw := z.Raw()
		start := offset
		offset += len(raw)

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			t := tag{name: string(name), offset: start, attrs: scanAttributes(raw, start)}
			tags = append(tags, t)
			if tt == html.StartTagToken && verbatimElements[t.name] {
				open = t.name
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == open {
				open = ""
			}
		case html.TextToken, html.CommentToken:
			if open == "" && tt == html.TextToken {
				continue
			}
			// the first line shares the opening tag, only continuation lines are verbatim
			first, last := src.line(start), src.line(max(offset-1, start))
			for l := first + 1; l <= last; l++ {
				verbatim[l] = true
			}
		}
	}

	return tags, verbatim, nil
}

// scanAttributes walks a raw start tag and returns its attributes with their absolute offsets.
func scanAttributes(raw []byte, base int) []attribute {
	attrs := make([]attribute, 0)
	i := 1 // skip '<'
	for i < len(raw) && !isSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}

	for i < len(raw) {
		for i < len(raw) && (isSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= len(raw) || raw[i] == '>' {
			break
		}

		start := i
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '=' && raw[i] != '>' && raw[i] != '/' {
			i++
		}
		a := attribute{name: string(raw[start:i]), offset: base + start}

		j := i
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}
		if j < len(raw) && raw[j] == '=' {
			j++
			for j < len(raw) && isSpace(raw[j]) {
				j++
			}
			a.hasValue = true
			if j < len(raw) && (raw[j] == '"' || raw[j] == '\'') {
				quote := raw[j]
				j++
				vstart := j
				for j < len(raw) && raw[j] != quote {
					j++
				}
				a.value = string(raw[vstart:j])
				if j < len(raw) {
					j++
				}
			} else {
				vstart := j
				for j < len(raw) && !isSpace(raw[j]) && raw[j] != '>' {
					j++
				}
				a.value = string(raw[vstart:j])
			}
			i = j
		}

		if a.name != "" {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func newIssue(src *source, offset int, code, rule string, data types.IssueData) types.Issue {
	line, col := src.position(offset)
	return types.Issue{Code: code, Rule: rule, Line: line, Column: col, Data: data}
}

func checkTag(src *source, t tag, opts options, ids map[string]bool) []types.Issue {
	issues := make([]types.Issue, 0)
	seen := make(map[string]bool)
	tagLine := src.line(t.offset)
	onFirstLine := 0

	for _, a := range t.attrs {
		lower := strings.ToLower(a.name)

		if slices.Contains(opts.attrBans, lower) {
			issues = append(issues, newIssue(src, a.offset, "E001", "attr-bans", types.IssueData{Attribute: a.name}))
		}

		if opts.attrNameStyle != "" && !formats[opts.attrNameStyle].MatchString(a.name) {
			issues = append(issues, newIssue(src, a.offset, "E002", "attr-name-style", types.IssueData{Attribute: a.name, Format: opts.attrNameStyle}))
		}

		if opts.attrNoDup && seen[lower] {
			issues = append(issues, newIssue(src, a.offset, "E003", "attr-no-dup", types.IssueData{Attribute: a.name}))
		}
		seen[lower] = true

		if opts.idClassStyle != "" && a.hasValue && (lower == "id" || lower == "class") {
			for _, v := range strings.Fields(a.value) {
				if !formats[opts.idClassStyle].MatchString(v) {
					issues = append(issues, newIssue(src, a.offset, "E011", "id-class-style", types.IssueData{Attribute: a.name, Value: v, Format: opts.idClassStyle}))
				}
			}
		}

		if opts.idNoDup && lower == "id" && a.value != "" {
			if ids[a.value] {
				issues = append(issues, newIssue(src, a.offset, "E012", "id-no-dup", types.IssueData{Attribute: a.name, Value: a.value}))
			}
			ids[a.value] = true
		}

		if src.line(a.offset) == tagLine {
			onFirstLine++
		}
	}

	if opts.attrNewLine > 0 && onFirstLine > opts.attrNewLine {
		issues = append(issues, newIssue(src, t.offset, "E037", "attr-new-line", types.IssueData{Limit: opts.attrNewLine}))
	}

	return issues
}

func checkIndentation(src *source, verbatim map[int]bool, opts options) []types.Issue {
	issues := make([]types.Issue, 0)
	if opts.indentWidth <= 0 {
		return issues
	}

	for i, line := range strings.Split(src.text, "\n") {
		if verbatim[i] || strings.TrimSpace(line) == "" {
			continue
		}
		spaces := len(line) - len(strings.TrimLeft(line, " "))
		if spaces%opts.indentWidth != 0 {
			issues = append(issues, types.Issue{
				Code:   "E036",
				Rule:   "indent-width",
				Line:   i,
				Column: spaces,
				Data:   types.IssueData{Width: opts.indentWidth},
			})
		}
	}
	return issues
}
