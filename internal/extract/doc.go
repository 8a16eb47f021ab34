// Package extract turns content files into xref records.
//
// MarkdownExtractor publishes one record per page that declares a uid in its
// front matter. SchemaExtractor publishes one record per uid embedded in a
// YAML or JSON document of a configured schema.
package extract
