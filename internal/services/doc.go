// Package services defines shared utilities consumed by the preload pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, user IDs, and stage names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper, with ClassifyKind and
//     HTTPStatus translating failures into API status codes.
//
// Subpackages hold the collaborators themselves: yt-dlp acquisition, whisper.cpp
// transcription, the chat-completion clients, and the LibreTranslate fallback.
package services
