// Package extract defines the metadata extraction boundary. The engine only
// depends on the Extractor interface; the bundled FilenameExtractor keeps the
// pipeline usable without external services, and the timeout and retry
// adapters wrap whichever implementation the caller supplies.
package extract
