// Package textutil provides text clean-up helpers for translated captions.
//
// The primary use cases are:
//   - Tidying punctuation spacing and whitespace in model output
//   - Unicode NFC normalization and Persian letter forms
package textutil
