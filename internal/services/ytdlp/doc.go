// Package ytdlp acquires a video's audio track with yt-dlp and normalizes it
// with ffmpeg into the 16 kHz mono 16-bit PCM WAV that whisper.cpp expects.
//
// Cookies uploaded by the browser extension are passed with --cookies when
// the configured cookie file exists. Egress goes through an explicit proxy
// URL, a locally detected proxy ("auto"), or directly.
package ytdlp
