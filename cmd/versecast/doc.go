// Command versecast turns a directory of poem files into narrated,
// captioned vertical videos. The CLI scans the source directory into a
// durable ledger, runs the batch pipeline, and provides inspection and
// maintenance commands for the ledger database.
package main
