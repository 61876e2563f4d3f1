// Package utils converts identifiers between the naming styles used by Anchor IDLs.
package utils

import (
	"strings"
	"unicode"
)

// ToPascalCase joins words with each capitalised: "initialize_mint" becomes
// "InitializeMint".
func ToPascalCase(s string) string {
	var result strings.Builder
	for _, word := range SplitWords(s) {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		result.WriteString(string(runes))
	}
	return result.String()
}

// ToSnakeCase lowercases words and joins them with underscores: "setNFTData" becomes
// "set_nft_data".
func ToSnakeCase(s string) string {
	words := SplitWords(s)
	for i := range words {
		words[i] = strings.ToLower(words[i])
	}
	return strings.Join(words, "_")
}

// SplitWords splits on '_', '-' and spaces, on lower-to-upper transitions and at
// the end of an acronym ("NFTData" is "NFT", "Data").
func SplitWords(s string) []string {
	var words []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' {
			flush()
			continue
		}

		if unicode.IsUpper(r) && len(current) > 0 {
			prev := current[len(current)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !unicode.IsUpper(prev) || nextLower {
				flush()
			}
		}

		current = append(current, r)
	}
	flush()

	return words
}
