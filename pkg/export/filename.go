package export

import (
	"strings"
	"unicode"
)

const courseTitleRunes = 20

// Filename derives a stable download name: Certificate_<StudentName>_<first 20 chars of CourseTitle>.pdf.
func Filename(studentName, courseTitle string) string {
	course := []rune(strings.TrimSpace(courseTitle))
	if len(course) > courseTitleRunes {
		course = course[:courseTitleRunes]
	}
	parts := []string{"Certificate"}
	for _, part := range []string{sanitizeFilePart(studentName), sanitizeFilePart(string(course))} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "_") + ".pdf"
}

// sanitizeFilePart keeps letters, digits, '-' and '_' and collapses whitespace runs into one '_'.
func sanitizeFilePart(value string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			pendingSep = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			if pendingSep {
				b.WriteByte('_')
				pendingSep = false
			}
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}
