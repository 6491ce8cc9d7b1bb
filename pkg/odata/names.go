package odata

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const maxIdentifierLength = 128

// normalizeName brings a name to NFC so that "ü" typed as one rune and as
// "u" + combining diaeresis address the same model element.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}

// validIdentifier reports whether name is an OData SimpleIdentifier: a letter
// or underscore followed by letters, digits, marks or connector punctuation.
func validIdentifier(name string) bool {
	if name == "" || utf8.RuneCountInString(name) > maxIdentifierLength {
		return false
	}
	for i, r := range name {
		if i == 0 {
			if r != '_' && !unicode.IsLetter(r) {
				return false
			}
			continue
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc):
		default:
			return false
		}
	}
	return true
}

func checkIdentifier(what, name string) error {
	if !validIdentifier(name) {
		return ErrInvalid("%s name «%s» is not a valid identifier", what, name)
	}
	return nil
}
