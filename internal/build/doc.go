// Package build runs the docxref build pipeline.
//
// A build moves through fixed stages: discover content files, extract xref
// records, freeze the registry, load external xref maps, resolve TOC files,
// render pages with their xref links resolved, and write the xref map, TOC
// outputs and the build report. Per-file failures become report issues;
// external map failures and output I/O abort the build.
package build
