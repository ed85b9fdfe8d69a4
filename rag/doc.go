// Package rag answers questions from retrieved legal sections.
//
// A Synthesizer runs a hybrid search for the question, assembles the hits
// into a bounded context, and asks the configured question-answering
// service for an answer. Provider failures never surface as errors: the
// caller always receives an answer text, possibly a fixed fallback
// message. The package also summarizes stored documents and offers a
// context-free chat call.
package rag
