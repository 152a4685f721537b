// Package whisper transcribes audio with the whisper.cpp command-line tool.
//
// whisper-cli is asked for JSON output. The JSON layout differs between
// builds, so parsing accepts several shapes: the native transcription[] list
// with millisecond offsets, a segments or chunks array, a bare array, or any
// array of text-bearing objects. When no JSON is produced, or every segment
// comes back with zero timing, the bracketed timestamp lines printed on
// stdout are parsed instead.
package whisper
