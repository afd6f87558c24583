// ABOUTME: URI templating for action descriptors.
// ABOUTME: Replaces :token placeholders with values from the acting record.

package dispatch

import (
	"fmt"
	"regexp"

	"github.com/2389/basiclist/internal/layout"
)

var placeholder = regexp.MustCompile(`:([A-Za-z0-9_]+)`)

// ResolveURI substitutes every :token in template with record[token]. Tokens
// the record does not carry are left in place as literal text, and a present
// but nil value becomes the empty string.
func ResolveURI(template string, record layout.Record) string {
	if template == "" || len(record) == 0 {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		v, ok := record[match[1:]]
		if !ok {
			return match
		}
		if v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}
