package service

import "strings"

// RenderTemplate substitutes {key} placeholders in a message variant with
// the lead's values. Unknown placeholders are left as-is.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}
