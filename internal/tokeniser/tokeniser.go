// Package tokeniser splits ticket text into the token streams consumed by the
// field locators.
package tokeniser

import "strings"

// Labeled tokenises a copied key/value dump of a ticket. Lines are split on
// tabs, empty cells are dropped and order is kept, so a label is usually
// followed by its value.
//
// Example input:
//
//	"Поїзд\t743 К\nВагон\t05 П"
//
// Example output:
//
//	["Поїзд", "743 К", "Вагон", "05 П"]
func Labeled(text string) []string {
	var tokens []string
	for _, line := range strings.Split(text, "\n") {
		for _, cell := range strings.Split(line, "\t") {
			if cell != "" {
				tokens = append(tokens, cell)
			}
		}
	}
	return tokens
}

// Positional tokenises PDF-extracted text into one token per line. Empty
// lines are kept: row positions are significant to the positional heuristics
// and collapsing them would shift every offset.
func Positional(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
