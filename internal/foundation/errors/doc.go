// Package errors provides the classified error primitives used across verin.
//
// Every failure the build pipeline or the refresh service reports is a
// ClassifiedError: a category (what went wrong), a severity (whether the
// surrounding operation can continue) and a free-form context map. The
// categories map one to one onto the failures a user can act on:
//
//   - CategoryFrontmatter: metadata block missing, unparsable or incomplete
//   - CategoryDate: date field does not match the configured input pattern
//   - CategoryTemplate: a page references a template that does not exist
//   - CategoryHighlight: a code fence names a language the highlighter lacks
//   - CategoryFileSystem: input/output read or write failure
//   - CategorySubscriber: a refresh subscriber could not be written to
//   - CategoryUnreachable: the trigger client could not reach the server
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryTemplate, "template not found").
//		WithContext("template", name).
//		WithCause(cause).
//		Build()
package errors
