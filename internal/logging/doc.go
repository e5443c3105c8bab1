// Package logging wires slog for the engine: console and JSON handlers,
// attribute helper aliases, and context-derived structured fields so every
// component logs file, plan, and backup identifiers consistently.
package logging
