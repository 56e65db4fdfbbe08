package receipt

import (
	"strings"

	"golang.org/x/text/width"
)

// cells is the number of printer columns r occupies.
func cells(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

func textWidth(s string) int {
	n := 0
	for _, r := range s {
		n += cells(r)
	}
	return n
}

func truncate(s string, n int) string {
	w := 0
	for i, r := range s {
		if w+cells(r) > n {
			return s[:i]
		}
		w += cells(r)
	}
	return s
}

func padRight(s string, n int) string {
	s = truncate(s, n)
	return s + strings.Repeat(" ", n-textWidth(s))
}

func padLeft(s string, n int) string {
	s = truncate(s, n)
	return strings.Repeat(" ", n-textWidth(s)) + s
}

// wrap breaks s into lines of at most n columns, preferring word
// boundaries and splitting words that are longer than a line.
func wrap(s string, n int) []string {
	if textWidth(s) <= n {
		return []string{s}
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	cur := ""
	for _, word := range words {
		for textWidth(word) > n {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			head := truncate(word, n)
			lines = append(lines, head)
			word = word[len(head):]
		}
		switch {
		case word == "":
		case cur == "":
			cur = word
		case textWidth(cur)+1+textWidth(word) <= n:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
