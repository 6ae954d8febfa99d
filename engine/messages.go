package engine

import (
	"strconv"
	"strings"

	"github.com/konradmalik/htmllint-ls/types"
)

const invalidCodeMessage = "not a valid error code"

var issueTemplates = map[string]string{
	"E001": "the `{attribute}` attribute is banned",
	"E002": "attribute names must match the format: {format}",
	"E003": "duplicate attribute: {attribute}",
	"E004": "attribute values must match quoting format: {format}",
	"E005": "attribute values must not include unsafe characters: {chars}",
	"E006": "attribute values cannot be empty",
	"E011": "value must match the format: {format}",
	"E012": "the id \"{value}\" is already in use",
	"E036": "indenting spaces must be used in groups of {width}",
	"E037": "attributes for one tag on the one line should be limited to {limit}",
}

// RenderIssue is the generic issue renderer: the code's template with placeholders filled from the issue data.
func RenderIssue(issue types.Issue) string {
	tmpl, ok := issueTemplates[issue.Code]
	if !ok {
		return invalidCodeMessage
	}

	d := issue.Data
	r := strings.NewReplacer(
		"{attribute}", d.Attribute,
		"{format}", d.Format,
		"{value}", d.Value,
		"{chars}", d.Chars,
		"{desc}", d.Desc,
		"{part}", d.Part,
		"{width}", strconv.Itoa(d.Width),
		"{limit}", strconv.Itoa(d.Limit),
	)
	return r.Replace(tmpl)
}
