package main

import (
	"strings"

	"github.com/atotto/clipboard"
)

func formatURLs(urls []string, bbcode bool) []string {
	lines := make([]string, 0, len(urls))
	for _, u := range urls {
		if bbcode {
			u = "[img]" + u + "[/img]"
		}
		lines = append(lines, u)
	}
	return lines
}

func copyToClipboard(lines []string) error {
	if clipboard.Unsupported {
		return nil
	}
	return clipboard.WriteAll(strings.Join(lines, "\n"))
}
