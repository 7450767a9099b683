// Package prompts builds the instructions sent to the text model and handles
// prompt files on disk.
//
// Authoring instructions carry the T=0 rule: a still depicts the instant
// before the briefed action completes, never its result. Inspection
// instructions re-check that rule together with the style and safety rules
// and ask the model to pass compliant prompts through unchanged.
//
// Model output goes through Normalize before it is written, so a prompt file
// is always a single NFC-normalized paragraph without code fences or quotes.
package prompts
