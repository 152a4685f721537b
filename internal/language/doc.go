// Package language normalizes language codes for transcription and translation
// backends, accepting ISO 639-1/639-2 codes, English names, and BCP 47 tags.
package language
