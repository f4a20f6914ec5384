// Package uss translates CSS stylesheets into the restricted stylesheet
// dialect of UI Toolkit (USS).
//
// Conversion works rule by rule. Selectors using pseudo-elements, structural
// pseudo-classes or denylisted parts are rejected, markup element names are
// replaced with toolkit element types. Declarations are checked against the
// property support table: native ones are emitted after value translation,
// fallback ones are approximated through synthesis table, everything else is
// reported and dropped. Rules left without selectors or declarations are
// omitted from output.
//
// Policy tables are loaded once and never modified, so single Engine may be
// shared between goroutines.
package uss
