// Package internaldefs holds the metric name, help text, and bucket
// definitions shared by the exporter packages.
//
// Both exporters render from the same definitions so that a counter or
// histogram keeps one name everywhere. Changing a definition here changes
// it for every exporter at once.
package internaldefs
