// Package main provides the entry point for the pilgrim CLI.
//
// pilgrim has two independent pipelines:
//
//	pilgrim crawl   walk the book catalog, persist every entry and optionally chart it
//	pilgrim report  aggregate a sales file into a yearly KPI dashboard
//
// See --help for all available options.
package main

func main() {
	Execute()
}
