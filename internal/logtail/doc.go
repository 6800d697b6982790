// Package logtail reads the tail of the client's log file for the logs view.
//
// Read scans the file once and keeps only the last N lines in a ring
// buffer, so memory stays bounded however large the file has grown. A
// missing file is not an error: the logger may simply not have written
// anything yet.
//
// Level and Filter understand the console format written by the logging
// package ("2006-01-02 15:04:05 INF message key=value").
package logtail
