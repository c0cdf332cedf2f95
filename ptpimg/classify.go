package ptpimg

import (
	"os"
	"strings"
)

// Kind tells whether a Target is a local file or a remote URL
type Kind int

const (
	KindFile Kind = iota
	KindURL
)

// Target is one classified input item
type Target struct {
	Kind  Kind
	Value string
}

// Classify decides whether item is an existing local path or an http(s) URL.
// Existing paths win over the URL prefix check.
func Classify(item string) (Target, error) {
	if _, err := os.Stat(item); err == nil {
		return Target{Kind: KindFile, Value: item}, nil
	}
	if strings.HasPrefix(item, "http") {
		return Target{Kind: KindURL, Value: item}, nil
	}
	return Target{}, &InvalidInputError{Item: item}
}

// Partition splits items into files and URLs, keeping the relative order of each.
// It fails on the first item that is neither, returning nothing else.
func Partition(items []string) (files, urls []string, err error) {
	for _, item := range items {
		target, err := Classify(item)
		if err != nil {
			return nil, nil, err
		}
		switch target.Kind {
		case KindFile:
			files = append(files, target.Value)
		case KindURL:
			urls = append(urls, target.Value)
		}
	}
	return files, urls, nil
}
