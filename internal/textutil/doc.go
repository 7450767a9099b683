// Package textutil provides the text helpers used around prompt files:
// token fingerprints with cosine similarity (to tell a cosmetic rewrite from a
// semantic one), whitespace and word-count clamps, and filename sanitizing.
//
// Tokenization lowercases text, splits on non-alphanumeric characters, and
// drops tokens shorter than 3 characters.
package textutil
