package sanitizer

import (
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func trimAndLower(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return s
}

func NormalizeEmail(email string) string {
	return trimAndLower(email)
}

func NormalizeHost(host string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return strings.TrimSuffix(s, ".") },
	}
	return p.Apply(host)
}

func NormalizeNotes(notes string) string {
	p := Pipeline{
		func(s string) string { return strings.ReplaceAll(s, "\r\n", "\n") },
		strings.TrimSpace,
	}
	return p.Apply(notes)
}
