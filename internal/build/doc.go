// Package build turns a directory of posts into a static site.
//
// A build runs in three phases:
//
//  1. Preflight: the posts directory must be readable and an "index" template
//     must exist. Failures here are fatal and nothing is written.
//  2. Documents: every "*.md" file is extracted, parsed, given a table of
//     contents and rendered with the template named by its "page" field.
//     Documents are independent and processed by a bounded worker pool; a
//     failing document is recorded in the Report and skipped.
//  3. Site pages: index.html lists the built articles newest first, followed by
//     the optional 404.html and rss.xml.
//
// Output depends only on the inputs and the debug flag, so rebuilding an
// unchanged tree rewrites byte-identical files.
package build
