// Package static collects the reports that static-analysis tools left in the
// build tree.
//
// Each known tool has a well-known report path below the project root. A
// missing report means the tool did not run and produces no entry. A report
// that exists but cannot be parsed produces an empty entry and a warning, so
// that the HTML report still shows the tool ran.
package static
